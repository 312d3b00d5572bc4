package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/guidowb/rebel/internal/provision"
)

// notFoundCodes are API error codes that mean the addressed item is gone.
var notFoundCodes = map[string]bool{
	"InvalidVpcID.NotFound":              true,
	"InvalidSubnetID.NotFound":           true,
	"InvalidInstanceID.NotFound":         true,
	"InvalidNetworkInterfaceID.NotFound": true,
	"InvalidGroup.NotFound":              true,
	"InvalidGroupId.NotFound":            true,
	"InvalidRouteTableID.NotFound":       true,
	"InvalidInternetGatewayID.NotFound":  true,
	"Gateway.NotAttached":                true,
	"LoadBalancerNotFound":               true,
	"DBInstanceNotFound":                 true,
	"DBInstanceNotFoundFault":            true,
	"DBSubnetGroupNotFoundFault":         true,
}

// wrapError converts an SDK error into a provision.TransportError for req.
func wrapError(req provision.Request, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return provision.NewNotFoundError(req, statusCode(err), err)
	}
	return provision.NewTransportError(req, statusCode(err), err)
}

func statusCode(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if notFoundCodes[apiErr.ErrorCode()] {
		return true
	}
	// CloudFormation reports missing stacks as a ValidationError.
	return strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
