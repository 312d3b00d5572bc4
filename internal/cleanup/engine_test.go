package cleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/internal/provision/provisiontest"
	"github.com/guidowb/rebel/internal/registry"
	"github.com/guidowb/rebel/pkg/resource"
)

const (
	opListNetworks       provision.Operation = "net:ListNetworks"
	opDeleteNetwork      provision.Operation = "net:DeleteNetwork"
	opListSubnets        provision.Operation = "net:ListSubnets"
	opDeleteSubnet       provision.Operation = "net:DeleteSubnet"
	opListInterfaces     provision.Operation = "net:ListInterfaces"
	opDeleteInterface    provision.Operation = "net:DeleteInterface"
	opListSecurityGroups provision.Operation = "net:ListSecurityGroups"
	opDeleteSecGroup     provision.Operation = "net:DeleteSecurityGroup"
)

func networkRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	byNetwork := []provision.Filter{provision.ParentFilter("network-id")}
	reg, err := registry.New(
		registry.ResourceType{
			Kind:    "network",
			IDField: "NetworkId",
			List:    registry.ListSpec{Request: provision.Request{Operation: opListNetworks}, Path: []string{"Networks"}},
			Delete:  []provision.Request{{Operation: opDeleteNetwork, Params: []provision.Param{provision.ID("NetworkId")}}},
			Children: []registry.ChildSpec{
				{Kind: "subnet", Filters: byNetwork},
				{Kind: "interface", Filters: byNetwork},
				{Kind: "security-group", Filters: byNetwork},
			},
		},
		registry.ResourceType{
			Kind:    "subnet",
			IDField: "SubnetId",
			List:    registry.ListSpec{Request: provision.Request{Operation: opListSubnets}, Path: []string{"Subnets"}},
			Delete:  []provision.Request{{Operation: opDeleteSubnet, Params: []provision.Param{provision.ID("SubnetId")}}},
		},
		registry.ResourceType{
			Kind:    "interface",
			IDField: "InterfaceId",
			List:    registry.ListSpec{Request: provision.Request{Operation: opListInterfaces}, Path: []string{"Interfaces"}},
			Delete:  []provision.Request{{Operation: opDeleteInterface, Params: []provision.Param{provision.ID("InterfaceId")}}},
		},
		registry.ResourceType{
			Kind:    "security-group",
			IDField: "GroupId",
			List:    registry.ListSpec{Request: provision.Request{Operation: opListSecurityGroups}, Path: []string{"SecurityGroups"}},
			Delete:  []provision.Request{{Operation: opDeleteSecGroup, Params: []provision.Param{provision.ID("GroupId")}}},
		},
	)
	require.NoError(t, err)
	return reg
}

func networkPipeline() Pipeline {
	byNetwork := []provision.Filter{provision.ParentFilter("network-id")}
	return Pipeline{
		Root: "network",
		Steps: []Step{
			{Kind: "interface", Filters: byNetwork},
			{Kind: "subnet", Filters: byNetwork},
			{Kind: "security-group", Filters: byNetwork, Skip: SkipDefaultSecurityGroup},
		},
	}
}

func networkCloud() *provisiontest.Cloud {
	byNetwork := map[string]string{"network-id": "NetworkId"}
	c := provisiontest.NewCloud()
	c.AddCollection(opListNetworks, provisiontest.Collection{Path: []string{"Networks"}, IDField: "NetworkId"})
	c.AddCollection(opListSubnets, provisiontest.Collection{Path: []string{"Subnets"}, IDField: "SubnetId", Filters: byNetwork})
	c.AddCollection(opListInterfaces, provisiontest.Collection{Path: []string{"Interfaces"}, IDField: "InterfaceId", Filters: byNetwork})
	c.AddCollection(opListSecurityGroups, provisiontest.Collection{Path: []string{"SecurityGroups"}, IDField: "GroupId", Filters: byNetwork})
	c.AddDelete(opDeleteNetwork, provisiontest.DeleteRule{List: opListNetworks, Param: "NetworkId"})
	c.AddDelete(opDeleteSubnet, provisiontest.DeleteRule{List: opListSubnets, Param: "SubnetId"})
	c.AddDelete(opDeleteInterface, provisiontest.DeleteRule{List: opListInterfaces, Param: "InterfaceId"})
	c.AddDelete(opDeleteSecGroup, provisiontest.DeleteRule{List: opListSecurityGroups, Param: "GroupId"})

	c.Put(opListNetworks, map[string]any{"NetworkId": "net-1"})
	c.Put(opListSubnets, map[string]any{"SubnetId": "s-1", "NetworkId": "net-1"})
	c.Put(opListSubnets, map[string]any{"SubnetId": "s-2", "NetworkId": "net-1"})
	c.Put(opListInterfaces, map[string]any{"InterfaceId": "if-1", "SubnetId": "s-1", "NetworkId": "net-1"})
	c.Put(opListSecurityGroups, map[string]any{"GroupId": "sg-default", "GroupName": "default", "NetworkId": "net-1"})
	c.Put(opListSecurityGroups, map[string]any{"GroupId": "sg-app", "GroupName": "app", "NetworkId": "net-1"})
	return c
}

func newNetworkEngine(t *testing.T, c *provisiontest.Cloud, opts ...Option) *Engine {
	opts = append([]Option{WithPipeline(networkPipeline()), WithLogger(zerolog.Nop())}, opts...)
	return NewEngine(c, networkRegistry(t), opts...)
}

func TestTeardownRoot_NetworkOrder(t *testing.T) {
	c := networkCloud()
	e := newNetworkEngine(t, c)

	report, err := e.TeardownRoot(context.Background(), "net-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"net:DeleteInterface InterfaceId=if-1",
		"net:DeleteSubnet SubnetId=s-1",
		"net:DeleteSubnet SubnetId=s-2",
		"net:DeleteSecurityGroup GroupId=sg-app",
		"net:DeleteNetwork NetworkId=net-1",
	}, c.DeleteCalls())

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "sg-default", report.Skipped[0].ID)
	assert.NoError(t, report.Partial())
	assert.False(t, report.Absent)
}

func TestTeardownRoot_SecondRunIsNoop(t *testing.T) {
	c := networkCloud()
	e := newNetworkEngine(t, c)

	_, err := e.TeardownRoot(context.Background(), "net-1")
	require.NoError(t, err)

	c.Reset()
	report, err := e.TeardownRoot(context.Background(), "net-1")
	require.NoError(t, err)

	assert.True(t, report.Absent)
	assert.Empty(t, c.DeleteCalls())
	assert.Equal(t, []string{"net:ListNetworks"}, c.Calls())
}

func TestTeardownRoot_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	e := newNetworkEngine(t, networkCloud(), WithTracer(tp.Tracer("test")))

	_, err := e.TeardownRoot(context.Background(), "net-1")
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "cleanup.teardown")
}

func TestTeardownTree_LeavesFirst(t *testing.T) {
	c := networkCloud()
	e := newNetworkEngine(t, c)

	forest := []resource.Node{{
		Kind: "network", ID: "net-1",
		Children: []resource.Node{
			{Kind: "subnet", ID: "s-1", Children: []resource.Node{{Kind: "interface", ID: "if-1"}}},
			{Kind: "security-group", ID: "sg-default", Item: resource.Item{"GroupName": "default"}},
		},
	}}

	report, err := e.TeardownTree(context.Background(), forest)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"net:DeleteInterface InterfaceId=if-1",
		"net:DeleteSubnet SubnetId=s-1",
		"net:DeleteNetwork NetworkId=net-1",
	}, c.DeleteCalls())
	assert.Len(t, report.Skipped, 1)
}

func awsCloud() *provisiontest.Cloud {
	c := provisiontest.NewAWSCloud()
	c.Put(provision.OpDescribeVpcs, map[string]any{"VpcId": "vpc-1", "IsDefault": false})
	c.Put(provision.OpDescribeVpcs, map[string]any{"VpcId": "vpc-default", "IsDefault": true})

	c.Put(provision.OpDescribeLoadBalancers, map[string]any{"LoadBalancerArn": "lb-1", "VpcId": "vpc-1"})
	c.Put(provision.OpDescribeLoadBalancers, map[string]any{"LoadBalancerArn": "lb-other", "VpcId": "vpc-default"})
	c.Put(provision.OpDescribeClassicLoadBalancers, map[string]any{"LoadBalancerName": "web-elb", "VPCId": "vpc-1"})
	c.Put(provision.OpDescribeClassicLoadBalancers, map[string]any{"LoadBalancerName": "legacy-elb", "VPCId": "vpc-default"})
	c.Put(provision.OpDescribeInstances, map[string]any{
		"InstanceId": "i-1", "VpcId": "vpc-1", "SubnetId": "subnet-a",
		"State": map[string]any{"Name": "running"},
	})
	c.Put(provision.OpDescribeDBInstances, map[string]any{
		"DBInstanceIdentifier": "db-1",
		"DBSubnetGroup":        map[string]any{"DBSubnetGroupName": "dbsg-1", "VpcId": "vpc-1"},
	})
	c.Put(provision.OpDescribeDBSubnetGroups, map[string]any{"DBSubnetGroupName": "dbsg-1", "VpcId": "vpc-1"})
	c.Put(provision.OpDescribeNetworkInterfaces, map[string]any{"NetworkInterfaceId": "eni-2", "VpcId": "vpc-1"})
	c.Put(provision.OpDescribeSubnets, map[string]any{"SubnetId": "subnet-a", "VpcId": "vpc-1"})
	c.Put(provision.OpDescribeSubnets, map[string]any{"SubnetId": "subnet-b", "VpcId": "vpc-1"})
	c.Put(provision.OpDescribeSecurityGroups, map[string]any{"GroupId": "sg-default", "GroupName": "default", "VpcId": "vpc-1"})
	c.Put(provision.OpDescribeSecurityGroups, map[string]any{"GroupId": "sg-app", "GroupName": "app", "VpcId": "vpc-1"})
	c.Put(provision.OpDescribeRouteTables, map[string]any{
		"RouteTableId": "rtb-main", "VpcId": "vpc-1",
		"Associations": []any{map[string]any{"Main": true}},
	})
	c.Put(provision.OpDescribeRouteTables, map[string]any{"RouteTableId": "rtb-1", "VpcId": "vpc-1", "Associations": []any{}})
	c.Put(provision.OpDescribeInternetGateways, map[string]any{
		"InternetGatewayId": "igw-1",
		"Attachments":       []any{map[string]any{"VpcId": "vpc-1", "State": "available"}},
	})
	return c
}

func newAWSEngine(c *provisiontest.Cloud, opts ...Option) *Engine {
	return NewEngine(c, registry.Default(), append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
}

func TestTeardownRoot_AWSOrder(t *testing.T) {
	c := awsCloud()
	e := newAWSEngine(c)

	report, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"elbv2:DeleteLoadBalancer LoadBalancerArn=lb-1",
		"elb:DeleteLoadBalancer LoadBalancerName=web-elb",
		"ec2:TerminateInstances InstanceIds=i-1",
		"rds:DeleteDBInstance DBInstanceIdentifier=db-1",
		"rds:DeleteDBSubnetGroup DBSubnetGroupName=dbsg-1",
		"ec2:DeleteNetworkInterface NetworkInterfaceId=eni-2",
		"ec2:DeleteSubnet SubnetId=subnet-a",
		"ec2:DeleteSubnet SubnetId=subnet-b",
		"ec2:DeleteSecurityGroup GroupId=sg-app",
		"ec2:DeleteRouteTable RouteTableId=rtb-1",
		"ec2:DetachInternetGateway InternetGatewayId=igw-1 VpcId=vpc-1",
		"ec2:DeleteInternetGateway InternetGatewayId=igw-1",
		"ec2:DeleteVpc VpcId=vpc-1",
	}, c.DeleteCalls())

	skipped := map[string]string{}
	for _, s := range report.Skipped {
		skipped[s.ID] = s.Reason
	}
	assert.Equal(t, map[string]string{
		"sg-default": "default security group",
		"rtb-main":   "route table has active associations",
	}, skipped)
}

func TestTeardownRoot_AwaitsBeforeDependents(t *testing.T) {
	c := awsCloud()
	e := newAWSEngine(c)

	_, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.NoError(t, err)

	calls := c.Calls()
	index := func(call string) int {
		for i, c := range calls {
			if c == call {
				return i
			}
		}
		t.Fatalf("call %q not issued", call)
		return -1
	}

	awaitDB := index("await:rds:DeleteDBInstance DBInstanceIdentifier=db-1")
	assert.Greater(t, awaitDB, index("rds:DeleteDBInstance DBInstanceIdentifier=db-1"))
	assert.Less(t, awaitDB, index("rds:DeleteDBSubnetGroup DBSubnetGroupName=dbsg-1"))

	awaitInstance := index("await:ec2:TerminateInstances InstanceIds=i-1")
	assert.Less(t, awaitInstance, index("rds:DeleteDBInstance DBInstanceIdentifier=db-1"))
}

func TestTeardownRoot_ClassicLoadBalancerBeforeSubnets(t *testing.T) {
	c := awsCloud()
	e := newAWSEngine(c)

	_, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.NoError(t, err)

	deletes := c.DeleteCalls()
	index := func(call string) int {
		for i, d := range deletes {
			if d == call {
				return i
			}
		}
		t.Fatalf("call %q not issued", call)
		return -1
	}

	elb := index("elb:DeleteLoadBalancer LoadBalancerName=web-elb")
	assert.Less(t, elb, index("ec2:TerminateInstances InstanceIds=i-1"))
	assert.Less(t, elb, index("ec2:DeleteSubnet SubnetId=subnet-a"))
	assert.Less(t, elb, index("ec2:DeleteSecurityGroup GroupId=sg-app"))
	assert.Less(t, elb, index("ec2:DeleteVpc VpcId=vpc-1"))
}

func TestTeardownRoot_DependentFailureContinues(t *testing.T) {
	c := awsCloud()
	c.FailDelete("ec2:DeleteSubnet SubnetId=subnet-a", errors.New("DependencyViolation"))
	e := newAWSEngine(c)

	report, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.NoError(t, err)

	deletes := c.DeleteCalls()
	assert.Contains(t, deletes, "ec2:DeleteSubnet SubnetId=subnet-b")
	assert.Equal(t, "ec2:DeleteVpc VpcId=vpc-1", deletes[len(deletes)-1])

	var partial *PartialDependencyError
	require.True(t, errors.As(report.Partial(), &partial))
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, "subnet-a", partial.Failures[0].ID)
	assert.Contains(t, partial.Error(), "1 dependents of vpc-1 could not be deleted")
}

func TestTeardownRoot_RootFailureIsReturned(t *testing.T) {
	c := awsCloud()
	c.FailDelete("ec2:DeleteVpc VpcId=vpc-1", errors.New("DependencyViolation"))
	e := newAWSEngine(c)

	_, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.Error(t, err)

	var te *provision.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "ec2:DeleteVpc VpcId=vpc-1", te.Request)
}

func TestTeardownRoot_DiscoveryFailureAborts(t *testing.T) {
	c := awsCloud()
	c.FailList(provision.OpDescribeSubnets, errors.New("throttled"))
	e := newAWSEngine(c)

	_, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.Error(t, err)

	assert.NotContains(t, c.DeleteCalls(), "ec2:DeleteVpc VpcId=vpc-1")
}

func TestPlan_IssuesNoDeletes(t *testing.T) {
	c := awsCloud()
	e := newAWSEngine(c)

	report, err := e.Plan(context.Background(), "vpc-1")
	require.NoError(t, err)

	assert.Empty(t, c.DeleteCalls())
	assert.True(t, report.DryRun)
	require.Len(t, report.Deletions, 12)
	assert.Equal(t, "vpc-1", report.Deletions[11].ID)
	assert.Len(t, report.Deletions[10].Requests, 2)
}

func TestPlan_RouteTableOfDeletedSubnets(t *testing.T) {
	c := awsCloud()
	c.Put(provision.OpDescribeRouteTables, map[string]any{
		"RouteTableId": "rtb-2", "VpcId": "vpc-1",
		"Associations": []any{
			map[string]any{"SubnetId": "subnet-a", "Main": false},
			map[string]any{"SubnetId": "subnet-b", "Main": false},
		},
	})
	e := newAWSEngine(c)

	report, err := e.Plan(context.Background(), "vpc-1")
	require.NoError(t, err)

	var planned *Deletion
	for i, d := range report.Deletions {
		if d.ID == "rtb-2" {
			planned = &report.Deletions[i]
		}
	}
	require.NotNil(t, planned, "rtb-2 not planned")
	assert.Equal(t, "after subnets", planned.Note)

	skipped := map[string]bool{}
	for _, s := range report.Skipped {
		skipped[s.ID] = true
	}
	assert.False(t, skipped["rtb-2"])
	assert.True(t, skipped["rtb-main"])
}

func TestRouteTableAfterSubnets_KeepsOtherAssociations(t *testing.T) {
	item := resource.Item{
		"RouteTableId": "rtb-2",
		"Associations": []any{
			map[string]any{"SubnetId": "subnet-a"},
			map[string]any{"SubnetId": "subnet-z"},
		},
	}
	planned := func(kind registry.Kind, id string) bool {
		return kind == registry.Subnet && id == "subnet-a"
	}

	settled, note := RouteTableAfterSubnets(item, planned)

	assert.Equal(t, "after subnets", note)
	assert.Len(t, settled.List("Associations"), 1)
	assert.Equal(t, "route table has active associations", SkipAssociatedRouteTable(settled))
	assert.Len(t, item.List("Associations"), 2)
}

func TestTeardownRoot_InstanceAlreadyGone(t *testing.T) {
	c := awsCloud()
	terminate := provision.Request{
		Operation: provision.OpTerminateInstances,
		Params:    []provision.Param{{Name: "InstanceIds", Value: "i-1"}},
	}
	c.FailDelete(terminate.String(), provision.NewNotFoundError(terminate, 400, errors.New("InvalidInstanceID.NotFound")))
	e := newAWSEngine(c)

	report, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.NoError(t, err)

	assert.NoError(t, report.Partial())
	assert.NotContains(t, c.Calls(), "await:ec2:TerminateInstances InstanceIds=i-1")
	assert.Contains(t, report.Deletions, Deletion{Kind: "instance", ID: "i-1", Requests: []provision.Request{terminate}})
}

func TestTeardownRoot_InstanceGoneWhileWaiting(t *testing.T) {
	c := awsCloud()
	terminate := provision.Request{
		Operation: provision.OpTerminateInstances,
		Params:    []provision.Param{{Name: "InstanceIds", Value: "i-1"}},
	}
	c.FailAwait(terminate.String(), provision.NewNotFoundError(terminate, 400, errors.New("await deletion: InvalidInstanceID.NotFound")))
	e := newAWSEngine(c)

	report, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.NoError(t, err)

	assert.NoError(t, report.Partial())
	assert.Contains(t, c.Calls(), "await:ec2:TerminateInstances InstanceIds=i-1")
	assert.Contains(t, report.Deletions, Deletion{Kind: "instance", ID: "i-1", Requests: []provision.Request{terminate}})
}

func TestTeardownRoot_AwaitFailureIsPartial(t *testing.T) {
	c := awsCloud()
	c.FailAwait("ec2:TerminateInstances InstanceIds=i-1", errors.New("exceeded max wait time"))
	e := newAWSEngine(c)

	report, err := e.TeardownRoot(context.Background(), "vpc-1")
	require.NoError(t, err)

	var partial *PartialDependencyError
	require.True(t, errors.As(report.Partial(), &partial))
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, "i-1", partial.Failures[0].ID)
}

func TestTeardownAll_SkipsDefaultVPC(t *testing.T) {
	c := awsCloud()
	e := newAWSEngine(c)

	reports, err := e.TeardownAll(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, "vpc-1", reports[0].Root)
	assert.NotContains(t, c.DeleteCalls(), "elbv2:DeleteLoadBalancer LoadBalancerArn=lb-other")
	assert.NotContains(t, c.DeleteCalls(), "elb:DeleteLoadBalancer LoadBalancerName=legacy-elb")
	assert.NotContains(t, c.DeleteCalls(), "ec2:DeleteVpc VpcId=vpc-default")
}

func TestPartialDependencyError(t *testing.T) {
	var e PartialDependencyError
	assert.False(t, e.HasErrors())

	e.Add("subnet", "s-1", nil)
	assert.False(t, e.HasErrors())

	cause := errors.New("in use")
	e.Add("subnet", "s-1", cause)
	assert.True(t, e.HasErrors())
	assert.ErrorIs(t, &e, cause)
	assert.Equal(t, "1 resources could not be deleted: subnet s-1: in use", e.Error())
}
