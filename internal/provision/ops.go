package provision

// Operations of the modeled provisioning API.
const (
	OpDescribeVpcs              Operation = "ec2:DescribeVpcs"
	OpDeleteVpc                 Operation = "ec2:DeleteVpc"
	OpDescribeSubnets           Operation = "ec2:DescribeSubnets"
	OpDeleteSubnet              Operation = "ec2:DeleteSubnet"
	OpDescribeInstances         Operation = "ec2:DescribeInstances"
	OpTerminateInstances        Operation = "ec2:TerminateInstances"
	OpDescribeNetworkInterfaces Operation = "ec2:DescribeNetworkInterfaces"
	OpDeleteNetworkInterface    Operation = "ec2:DeleteNetworkInterface"
	OpDescribeSecurityGroups    Operation = "ec2:DescribeSecurityGroups"
	OpDeleteSecurityGroup       Operation = "ec2:DeleteSecurityGroup"
	OpDescribeRouteTables       Operation = "ec2:DescribeRouteTables"
	OpDeleteRouteTable          Operation = "ec2:DeleteRouteTable"
	OpDescribeInternetGateways  Operation = "ec2:DescribeInternetGateways"
	OpDetachInternetGateway     Operation = "ec2:DetachInternetGateway"
	OpDeleteInternetGateway     Operation = "ec2:DeleteInternetGateway"

	OpDescribeLoadBalancers Operation = "elbv2:DescribeLoadBalancers"
	OpDeleteLoadBalancer    Operation = "elbv2:DeleteLoadBalancer"

	OpDescribeClassicLoadBalancers Operation = "elb:DescribeLoadBalancers"
	OpDeleteClassicLoadBalancer    Operation = "elb:DeleteLoadBalancer"

	OpDescribeDBInstances    Operation = "rds:DescribeDBInstances"
	OpDeleteDBInstance       Operation = "rds:DeleteDBInstance"
	OpDescribeDBSubnetGroups Operation = "rds:DescribeDBSubnetGroups"
	OpDeleteDBSubnetGroup    Operation = "rds:DeleteDBSubnetGroup"
)

// ID is a request template param bound to the item id.
func ID(name string) Param {
	return Param{Name: name, Value: PlaceholderID}
}

// Parent is a request template param bound to the parent id.
func Parent(name string) Param {
	return Param{Name: name, Value: PlaceholderParent}
}

// ParentFilter is a filter template matching the parent id.
func ParentFilter(name string) Filter {
	return Filter{Name: name, Values: []string{PlaceholderParent}}
}
