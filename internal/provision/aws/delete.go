package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/guidowb/rebel/internal/provision"
)

// DeleteItem issues a delete request. Params are taken from the request by
// their SDK field names.
func (b *Backend) DeleteItem(ctx context.Context, req provision.Request) error {
	return wrapError(req, b.delete(ctx, req))
}

func (b *Backend) delete(ctx context.Context, req provision.Request) error {
	var (
		id  string
		err error
	)
	first := func(name string) string {
		if err != nil {
			return ""
		}
		v, ok := req.Param(name)
		if !ok || v == "" {
			err = fmt.Errorf("missing param %s", name)
		}
		return v
	}

	switch req.Operation {
	case provision.OpDeleteVpc:
		if id = first("VpcId"); err == nil {
			_, err = b.ec2Client.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(id)})
		}
	case provision.OpDeleteSubnet:
		if id = first("SubnetId"); err == nil {
			_, err = b.ec2Client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(id)})
		}
	case provision.OpTerminateInstances:
		if id = first("InstanceIds"); err == nil {
			_, err = b.ec2Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{id}})
		}
	case provision.OpDeleteNetworkInterface:
		if id = first("NetworkInterfaceId"); err == nil {
			_, err = b.ec2Client.DeleteNetworkInterface(ctx, &ec2.DeleteNetworkInterfaceInput{NetworkInterfaceId: aws.String(id)})
		}
	case provision.OpDeleteSecurityGroup:
		if id = first("GroupId"); err == nil {
			_, err = b.ec2Client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(id)})
		}
	case provision.OpDeleteRouteTable:
		if id = first("RouteTableId"); err == nil {
			_, err = b.ec2Client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: aws.String(id)})
		}
	case provision.OpDetachInternetGateway:
		id = first("InternetGatewayId")
		vpc := first("VpcId")
		if err == nil {
			_, err = b.ec2Client.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
				InternetGatewayId: aws.String(id),
				VpcId:             aws.String(vpc),
			})
		}
	case provision.OpDeleteInternetGateway:
		if id = first("InternetGatewayId"); err == nil {
			_, err = b.ec2Client.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{InternetGatewayId: aws.String(id)})
		}
	case provision.OpDeleteLoadBalancer:
		if id = first("LoadBalancerArn"); err == nil {
			_, err = b.elbClient.DeleteLoadBalancer(ctx, &elasticloadbalancingv2.DeleteLoadBalancerInput{LoadBalancerArn: aws.String(id)})
		}
	case provision.OpDeleteClassicLoadBalancer:
		if id = first("LoadBalancerName"); err == nil {
			_, err = b.classicELBClient.DeleteLoadBalancer(ctx, &elasticloadbalancing.DeleteLoadBalancerInput{LoadBalancerName: aws.String(id)})
		}
	case provision.OpDeleteDBInstance:
		if id = first("DBInstanceIdentifier"); err == nil {
			_, err = b.rdsClient.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
				DBInstanceIdentifier:   aws.String(id),
				SkipFinalSnapshot:      aws.Bool(true),
				DeleteAutomatedBackups: aws.Bool(true),
			})
		}
	case provision.OpDeleteDBSubnetGroup:
		if id = first("DBSubnetGroupName"); err == nil {
			_, err = b.rdsClient.DeleteDBSubnetGroup(ctx, &rds.DeleteDBSubnetGroupInput{DBSubnetGroupName: aws.String(id)})
		}
	default:
		err = fmt.Errorf("unsupported delete operation %s", req.Operation)
	}
	return err
}

// AwaitDeleted waits for instances to terminate and database instances to
// disappear. Other deletes complete synchronously.
func (b *Backend) AwaitDeleted(ctx context.Context, req provision.Request) error {
	var err error
	switch req.Operation {
	case provision.OpTerminateInstances:
		id, _ := req.Param("InstanceIds")
		w := ec2.NewInstanceTerminatedWaiter(b.ec2Client)
		err = w.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}}, b.wait())
	case provision.OpDeleteDBInstance:
		id, _ := req.Param("DBInstanceIdentifier")
		w := rds.NewDBInstanceDeletedWaiter(b.rdsClient)
		err = w.Wait(ctx, &rds.DescribeDBInstancesInput{DBInstanceIdentifier: aws.String(id)}, b.wait())
	default:
		return nil
	}
	if err != nil {
		return wrapError(req, fmt.Errorf("await deletion: %w", err))
	}
	return nil
}

func (b *Backend) wait() time.Duration {
	if b.maxWait <= 0 {
		return DefaultMaxWait
	}
	return b.maxWait
}
