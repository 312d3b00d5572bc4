package provisiontest

import "github.com/guidowb/rebel/internal/provision"

// NewAWSCloud returns a cloud serving the list and delete operations of
// the AWS schema, with the filters the schema and teardown pipeline use.
func NewAWSCloud() *Cloud {
	c := NewCloud()

	c.AddCollection(provision.OpDescribeVpcs, Collection{
		Path: []string{"Vpcs"}, IDField: "VpcId",
		Filters: map[string]string{"is-default": "IsDefault"},
	})
	c.AddCollection(provision.OpDescribeSubnets, Collection{
		Path: []string{"Subnets"}, IDField: "SubnetId",
		Filters: map[string]string{"vpc-id": "VpcId"},
	})
	c.AddCollection(provision.OpDescribeInstances, Collection{
		Path: []string{"Reservations", "Instances"}, IDField: "InstanceId",
		Filters: map[string]string{
			"vpc-id":              "VpcId",
			"subnet-id":           "SubnetId",
			"instance-state-name": "State.Name",
		},
	})
	c.AddCollection(provision.OpDescribeNetworkInterfaces, Collection{
		Path: []string{"NetworkInterfaces"}, IDField: "NetworkInterfaceId",
		Filters: map[string]string{
			"vpc-id":                           "VpcId",
			"subnet-id":                        "SubnetId",
			"attachment.instance-id":           "Attachment.InstanceId",
			"attachment.delete-on-termination": "Attachment.DeleteOnTermination",
		},
	})
	c.AddCollection(provision.OpDescribeSecurityGroups, Collection{
		Path: []string{"SecurityGroups"}, IDField: "GroupId",
		Filters: map[string]string{"vpc-id": "VpcId"},
	})
	c.AddCollection(provision.OpDescribeRouteTables, Collection{
		Path: []string{"RouteTables"}, IDField: "RouteTableId",
		Filters: map[string]string{"vpc-id": "VpcId"},
	})
	c.AddCollection(provision.OpDescribeInternetGateways, Collection{
		Path: []string{"InternetGateways"}, IDField: "InternetGatewayId",
		Filters: map[string]string{"attachment.vpc-id": "Attachments.VpcId"},
	})
	c.AddCollection(provision.OpDescribeLoadBalancers, Collection{
		Path: []string{"LoadBalancers"}, IDField: "LoadBalancerArn",
	})
	c.AddCollection(provision.OpDescribeClassicLoadBalancers, Collection{
		Path: []string{"LoadBalancerDescriptions"}, IDField: "LoadBalancerName",
	})
	c.AddCollection(provision.OpDescribeDBInstances, Collection{
		Path: []string{"DBInstances"}, IDField: "DBInstanceIdentifier",
	})
	c.AddCollection(provision.OpDescribeDBSubnetGroups, Collection{
		Path: []string{"DBSubnetGroups"}, IDField: "DBSubnetGroupName",
	})

	c.AddDelete(provision.OpDeleteVpc, DeleteRule{List: provision.OpDescribeVpcs, Param: "VpcId"})
	c.AddDelete(provision.OpDeleteSubnet, DeleteRule{List: provision.OpDescribeSubnets, Param: "SubnetId"})
	c.AddDelete(provision.OpTerminateInstances, DeleteRule{List: provision.OpDescribeInstances, Param: "InstanceIds"})
	c.AddDelete(provision.OpDeleteNetworkInterface, DeleteRule{List: provision.OpDescribeNetworkInterfaces, Param: "NetworkInterfaceId"})
	c.AddDelete(provision.OpDeleteSecurityGroup, DeleteRule{List: provision.OpDescribeSecurityGroups, Param: "GroupId"})
	c.AddDelete(provision.OpDeleteRouteTable, DeleteRule{List: provision.OpDescribeRouteTables, Param: "RouteTableId"})
	c.AddDelete(provision.OpDetachInternetGateway, DeleteRule{List: provision.OpDescribeInternetGateways, Param: "InternetGatewayId", Keep: true})
	c.AddDelete(provision.OpDeleteInternetGateway, DeleteRule{List: provision.OpDescribeInternetGateways, Param: "InternetGatewayId"})
	c.AddDelete(provision.OpDeleteLoadBalancer, DeleteRule{List: provision.OpDescribeLoadBalancers, Param: "LoadBalancerArn"})
	c.AddDelete(provision.OpDeleteClassicLoadBalancer, DeleteRule{List: provision.OpDescribeClassicLoadBalancers, Param: "LoadBalancerName"})
	c.AddDelete(provision.OpDeleteDBInstance, DeleteRule{List: provision.OpDescribeDBInstances, Param: "DBInstanceIdentifier"})
	c.AddDelete(provision.OpDeleteDBSubnetGroup, DeleteRule{List: provision.OpDescribeDBSubnetGroups, Param: "DBSubnetGroupName"})

	return c
}
