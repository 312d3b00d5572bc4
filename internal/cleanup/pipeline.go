package cleanup

import (
	"maps"

	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/internal/registry"
	"github.com/guidowb/rebel/pkg/resource"
)

// SkipFunc returns a non-empty reason when an item must not be deleted.
type SkipFunc func(resource.Item) string

// Planned reports whether a dry run already plans to delete an item.
type Planned func(kind registry.Kind, id string) bool

// PlanFunc returns item as it will look when its step runs in a real
// teardown, given the deletions planned before it. A non-empty note
// explains the difference.
type PlanFunc func(item resource.Item, planned Planned) (resource.Item, string)

// Step removes every dependent of one kind before the root goes.
type Step struct {
	Kind registry.Kind
	// Filters select the dependents of the root; {parent} is the root id.
	Filters []provision.Filter
	// ParentRef post-filters dependents whose list call cannot filter by
	// root server-side.
	ParentRef string
	Skip      SkipFunc
	// Plan adjusts items in dry runs, where earlier steps have not run.
	Plan PlanFunc
}

// Pipeline is the fixed teardown order for one root kind.
type Pipeline struct {
	Root registry.Kind
	// SkipRoot excludes roots from TeardownAll.
	SkipRoot SkipFunc
	Steps    []Step
}

func (p Pipeline) stepFor(kind string) Step {
	for _, s := range p.Steps {
		if string(s.Kind) == kind {
			return s
		}
	}
	return Step{Kind: registry.Kind(kind)}
}

// SkipDefaultSecurityGroup keeps the group every VPC owns implicitly.
func SkipDefaultSecurityGroup(item resource.Item) string {
	if item.String("GroupName") == "default" {
		return "default security group"
	}
	return ""
}

// SkipAssociatedRouteTable keeps route tables that are still associated,
// including the main table, which goes away with its VPC.
func SkipAssociatedRouteTable(item resource.Item) string {
	if len(item.List("Associations")) > 0 {
		return "route table has active associations"
	}
	return ""
}

// RouteTableAfterSubnets drops the associations of subnets the plan
// deletes. Deleting a subnet removes its association, so a real teardown
// finds those tables unassociated.
func RouteTableAfterSubnets(item resource.Item, planned Planned) (resource.Item, string) {
	assocs := item.List("Associations")
	kept := make([]any, 0, len(assocs))
	for _, a := range assocs {
		if id := a.String("SubnetId"); id != "" && planned(registry.Subnet, id) {
			continue
		}
		kept = append(kept, map[string]any(a))
	}
	if len(kept) == len(assocs) {
		return item, ""
	}

	settled := maps.Clone(item)
	settled["Associations"] = kept
	return settled, "after subnets"
}

// SkipDefaultVPC keeps the account's default VPC.
func SkipDefaultVPC(item resource.Item) string {
	if item.Bool("IsDefault") {
		return "default vpc"
	}
	return ""
}

// AWSPipeline returns the VPC teardown order. Instances and database
// instances are awaited by their types, so the subnet group step only
// runs once nothing references the group.
func AWSPipeline() Pipeline {
	byVPC := []provision.Filter{provision.ParentFilter("vpc-id")}
	return Pipeline{
		Root:     registry.VPC,
		SkipRoot: SkipDefaultVPC,
		Steps: []Step{
			{Kind: registry.LoadBalancer, ParentRef: "VpcId"},
			{Kind: registry.ClassicLoadBalancer, ParentRef: "VPCId"},
			{Kind: registry.Instance, Filters: byVPC},
			{Kind: registry.DBInstance, ParentRef: "DBSubnetGroup.VpcId"},
			{Kind: registry.DBSubnetGroup, ParentRef: "VpcId"},
			{Kind: registry.NetworkInterface, Filters: byVPC},
			{Kind: registry.Subnet, Filters: byVPC},
			{Kind: registry.SecurityGroup, Filters: byVPC, Skip: SkipDefaultSecurityGroup},
			{Kind: registry.RouteTable, Filters: byVPC, Skip: SkipAssociatedRouteTable, Plan: RouteTableAfterSubnets},
			{Kind: registry.InternetGateway, Filters: []provision.Filter{provision.ParentFilter("attachment.vpc-id")}},
		},
	}
}
