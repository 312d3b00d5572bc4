// Package aws implements the provisioning API on the AWS SDK.
package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/guidowb/rebel/internal/provision"
)

// DefaultMaxWait bounds AwaitDeleted.
const DefaultMaxWait = 30 * time.Minute

// Backend implements provision.API against AWS.
type Backend struct {
	region  string
	maxWait time.Duration

	// AWS clients (interfaces for testability)
	ec2Client        EC2API
	elbClient        ELBAPI
	classicELBClient ClassicELBAPI
	rdsClient        RDSAPI
	cfnClient        CloudFormationAPI
}

var _ provision.API = (*Backend)(nil)

// Config holds AWS backend configuration.
type Config struct {
	Region  string
	Profile string
	// MaxWait bounds how long AwaitDeleted waits. Zero means DefaultMaxWait.
	MaxWait time.Duration
}

// New creates a backend from the default credential chain.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("load aws config: no region configured")
	}

	b := &Backend{
		region:           awsCfg.Region,
		maxWait:          cfg.MaxWait,
		ec2Client:        ec2.NewFromConfig(awsCfg),
		elbClient:        elasticloadbalancingv2.NewFromConfig(awsCfg),
		classicELBClient: elasticloadbalancing.NewFromConfig(awsCfg),
		rdsClient:        rds.NewFromConfig(awsCfg),
		cfnClient:        cloudformation.NewFromConfig(awsCfg),
	}
	if b.maxWait <= 0 {
		b.maxWait = DefaultMaxWait
	}
	return b, nil
}

// Region returns the region the backend talks to.
func (b *Backend) Region() string {
	return b.region
}

// AccountID returns the id of the account the credentials belong to.
func (b *Backend) AccountID(ctx context.Context) (string, error) {
	output, err := b.ec2Client.DescribeAccountAttributes(ctx, &ec2.DescribeAccountAttributesInput{})
	if err != nil {
		return "", err
	}

	for _, attr := range output.AccountAttributes {
		if aws.ToString(attr.AttributeName) == "account-id" && len(attr.AttributeValues) > 0 {
			return aws.ToString(attr.AttributeValues[0].AttributeValue), nil
		}
	}

	return "unknown", nil
}
