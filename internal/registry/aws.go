package registry

import (
	"github.com/guidowb/rebel/internal/provision"
)

// Kinds of the AWS schema.
const (
	VPC                 Kind = "vpc"
	Subnet              Kind = "subnet"
	Instance            Kind = "instance"
	NetworkInterface    Kind = "network-interface"
	LoadBalancer        Kind = "load-balancer"
	ClassicLoadBalancer Kind = "classic-load-balancer"
	SecurityGroup       Kind = "security-group"
	RouteTable          Kind = "route-table"
	InternetGateway     Kind = "internet-gateway"
	DBInstance          Kind = "db-instance"
	DBSubnetGroup       Kind = "db-subnet-group"
)

// liveInstanceStates excludes terminated instances, which linger in
// describe output for a while after termination.
var liveInstanceStates = provision.Filter{
	Name:   "instance-state-name",
	Values: []string{"pending", "running", "shutting-down", "stopping", "stopped"},
}

// AWSTypes returns the AWS resource schema.
func AWSTypes() []ResourceType {
	return []ResourceType{
		{
			Kind:    VPC,
			IDField: "VpcId",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeVpcs}, Path: []string{"Vpcs"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteVpc, Params: []provision.Param{provision.ID("VpcId")}}},
			Children: []ChildSpec{
				{Kind: NetworkInterface, Filters: []provision.Filter{
					provision.ParentFilter("vpc-id"),
					{Name: "attachment.delete-on-termination", Values: []string{"false"}},
				}},
				{Kind: LoadBalancer, ParentRef: "VpcId"},
				{Kind: ClassicLoadBalancer, ParentRef: "VPCId"},
				{Kind: Subnet, Filters: []provision.Filter{provision.ParentFilter("vpc-id")}},
				{Kind: SecurityGroup, Filters: []provision.Filter{provision.ParentFilter("vpc-id")}},
				{Kind: RouteTable, Filters: []provision.Filter{provision.ParentFilter("vpc-id")}},
				{Kind: InternetGateway, Filters: []provision.Filter{provision.ParentFilter("attachment.vpc-id")}},
				{Kind: DBInstance, ParentRef: "DBSubnetGroup.VpcId"},
				{Kind: DBSubnetGroup, ParentRef: "VpcId"},
			},
		},
		{
			Kind:    Subnet,
			IDField: "SubnetId",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeSubnets}, Path: []string{"Subnets"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteSubnet, Params: []provision.Param{provision.ID("SubnetId")}}},
			Children: []ChildSpec{
				{Kind: Instance, Filters: []provision.Filter{provision.ParentFilter("subnet-id")}},
			},
		},
		{
			Kind:    Instance,
			IDField: "InstanceId",
			List: ListSpec{
				Request: provision.Request{Operation: provision.OpDescribeInstances, Filters: []provision.Filter{liveInstanceStates}},
				Path:    []string{"Reservations", "Instances"},
			},
			Delete:        []provision.Request{{Operation: provision.OpTerminateInstances, Params: []provision.Param{provision.ID("InstanceIds")}}},
			AwaitDeletion: true,
			Children: []ChildSpec{
				{Kind: NetworkInterface, Filters: []provision.Filter{provision.ParentFilter("attachment.instance-id")}},
			},
		},
		{
			Kind:    NetworkInterface,
			IDField: "NetworkInterfaceId",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeNetworkInterfaces}, Path: []string{"NetworkInterfaces"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteNetworkInterface, Params: []provision.Param{provision.ID("NetworkInterfaceId")}}},
		},
		{
			Kind:    LoadBalancer,
			IDField: "LoadBalancerArn",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeLoadBalancers}, Path: []string{"LoadBalancers"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteLoadBalancer, Params: []provision.Param{provision.ID("LoadBalancerArn")}}},
		},
		{
			Kind:    ClassicLoadBalancer,
			IDField: "LoadBalancerName",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeClassicLoadBalancers}, Path: []string{"LoadBalancerDescriptions"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteClassicLoadBalancer, Params: []provision.Param{provision.ID("LoadBalancerName")}}},
		},
		{
			Kind:    SecurityGroup,
			IDField: "GroupId",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeSecurityGroups}, Path: []string{"SecurityGroups"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteSecurityGroup, Params: []provision.Param{provision.ID("GroupId")}}},
		},
		{
			Kind:    RouteTable,
			IDField: "RouteTableId",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeRouteTables}, Path: []string{"RouteTables"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteRouteTable, Params: []provision.Param{provision.ID("RouteTableId")}}},
		},
		{
			Kind:    InternetGateway,
			IDField: "InternetGatewayId",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeInternetGateways}, Path: []string{"InternetGateways"}},
			Delete: []provision.Request{
				{Operation: provision.OpDetachInternetGateway, Params: []provision.Param{provision.ID("InternetGatewayId"), provision.Parent("VpcId")}},
				{Operation: provision.OpDeleteInternetGateway, Params: []provision.Param{provision.ID("InternetGatewayId")}},
			},
		},
		{
			Kind:          DBInstance,
			IDField:       "DBInstanceIdentifier",
			List:          ListSpec{Request: provision.Request{Operation: provision.OpDescribeDBInstances}, Path: []string{"DBInstances"}},
			Delete:        []provision.Request{{Operation: provision.OpDeleteDBInstance, Params: []provision.Param{provision.ID("DBInstanceIdentifier")}}},
			AwaitDeletion: true,
		},
		{
			Kind:    DBSubnetGroup,
			IDField: "DBSubnetGroupName",
			List:    ListSpec{Request: provision.Request{Operation: provision.OpDescribeDBSubnetGroups}, Path: []string{"DBSubnetGroups"}},
			Delete:  []provision.Request{{Operation: provision.OpDeleteDBSubnetGroup, Params: []provision.Param{provision.ID("DBSubnetGroupName")}}},
		},
	}
}

// Default returns the registry for the AWS schema.
func Default() *Registry {
	r, err := New(AWSTypes()...)
	if err != nil {
		panic("registry: invalid AWS schema: " + err.Error())
	}
	return r
}
