package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	classictypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/guidowb/rebel/internal/provision"
)

// ListItems runs a describe call, following pagination, and returns the
// combined response decoded into plain maps and slices keyed by the SDK's
// field names, e.g. {"Vpcs": [{"VpcId": "vpc-1", ...}]}.
func (b *Backend) ListItems(ctx context.Context, req provision.Request) (any, error) {
	out, err := b.list(ctx, req)
	if err != nil {
		return nil, wrapError(req, err)
	}
	return decode(out)
}

func (b *Backend) list(ctx context.Context, req provision.Request) (map[string]any, error) {
	switch req.Operation {
	case provision.OpDescribeVpcs:
		p := ec2.NewDescribeVpcsPaginator(b.ec2Client, &ec2.DescribeVpcsInput{Filters: ec2Filters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]ec2types.Vpc, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.Vpcs, nil
		})
		return map[string]any{"Vpcs": items}, err

	case provision.OpDescribeSubnets:
		p := ec2.NewDescribeSubnetsPaginator(b.ec2Client, &ec2.DescribeSubnetsInput{Filters: ec2Filters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]ec2types.Subnet, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.Subnets, nil
		})
		return map[string]any{"Subnets": items}, err

	case provision.OpDescribeInstances:
		p := ec2.NewDescribeInstancesPaginator(b.ec2Client, &ec2.DescribeInstancesInput{Filters: ec2Filters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]ec2types.Reservation, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.Reservations, nil
		})
		return map[string]any{"Reservations": items}, err

	case provision.OpDescribeNetworkInterfaces:
		p := ec2.NewDescribeNetworkInterfacesPaginator(b.ec2Client, &ec2.DescribeNetworkInterfacesInput{Filters: ec2Filters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]ec2types.NetworkInterface, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.NetworkInterfaces, nil
		})
		return map[string]any{"NetworkInterfaces": items}, err

	case provision.OpDescribeSecurityGroups:
		p := ec2.NewDescribeSecurityGroupsPaginator(b.ec2Client, &ec2.DescribeSecurityGroupsInput{Filters: ec2Filters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]ec2types.SecurityGroup, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.SecurityGroups, nil
		})
		return map[string]any{"SecurityGroups": items}, err

	case provision.OpDescribeRouteTables:
		p := ec2.NewDescribeRouteTablesPaginator(b.ec2Client, &ec2.DescribeRouteTablesInput{Filters: ec2Filters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]ec2types.RouteTable, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.RouteTables, nil
		})
		return map[string]any{"RouteTables": items}, err

	case provision.OpDescribeInternetGateways:
		p := ec2.NewDescribeInternetGatewaysPaginator(b.ec2Client, &ec2.DescribeInternetGatewaysInput{Filters: ec2Filters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]ec2types.InternetGateway, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.InternetGateways, nil
		})
		return map[string]any{"InternetGateways": items}, err

	case provision.OpDescribeLoadBalancers:
		if len(req.Filters) > 0 {
			return nil, errFiltersUnsupported
		}
		p := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(b.elbClient, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
		items, err := paginate(p.HasMorePages, func() ([]elbtypes.LoadBalancer, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.LoadBalancers, nil
		})
		return map[string]any{"LoadBalancers": items}, err

	case provision.OpDescribeClassicLoadBalancers:
		if len(req.Filters) > 0 {
			return nil, errFiltersUnsupported
		}
		p := elasticloadbalancing.NewDescribeLoadBalancersPaginator(b.classicELBClient, &elasticloadbalancing.DescribeLoadBalancersInput{})
		items, err := paginate(p.HasMorePages, func() ([]classictypes.LoadBalancerDescription, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.LoadBalancerDescriptions, nil
		})
		return map[string]any{"LoadBalancerDescriptions": items}, err

	case provision.OpDescribeDBInstances:
		p := rds.NewDescribeDBInstancesPaginator(b.rdsClient, &rds.DescribeDBInstancesInput{Filters: rdsFilters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]rdstypes.DBInstance, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.DBInstances, nil
		})
		return map[string]any{"DBInstances": items}, err

	case provision.OpDescribeDBSubnetGroups:
		p := rds.NewDescribeDBSubnetGroupsPaginator(b.rdsClient, &rds.DescribeDBSubnetGroupsInput{Filters: rdsFilters(req.Filters)})
		items, err := paginate(p.HasMorePages, func() ([]rdstypes.DBSubnetGroup, error) {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return page.DBSubnetGroups, nil
		})
		return map[string]any{"DBSubnetGroups": items}, err

	default:
		return nil, fmt.Errorf("unsupported list operation %s", req.Operation)
	}
}

var errFiltersUnsupported = fmt.Errorf("server-side filters are not supported by this operation")

// paginate drains a paginator page by page.
func paginate[T any](hasMore func() bool, next func() ([]T, error)) ([]T, error) {
	var all []T
	for hasMore() {
		items, err := next()
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

func ec2Filters(filters []provision.Filter) []ec2types.Filter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]ec2types.Filter, 0, len(filters))
	for _, f := range filters {
		name := f.Name
		out = append(out, ec2types.Filter{Name: &name, Values: f.Values})
	}
	return out
}

func rdsFilters(filters []provision.Filter) []rdstypes.Filter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]rdstypes.Filter, 0, len(filters))
	for _, f := range filters {
		name := f.Name
		out = append(out, rdstypes.Filter{Name: &name, Values: f.Values})
	}
	return out
}

// decode turns SDK output structs into the generic item form the tree
// builder navigates.
func decode(v map[string]any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
