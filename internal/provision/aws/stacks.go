package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/pkg/resource"
)

// Stack operations, named for error reporting.
const (
	opDescribeStacks     provision.Operation = "cloudformation:DescribeStacks"
	opCreateStack        provision.Operation = "cloudformation:CreateStack"
	opDeleteStack        provision.Operation = "cloudformation:DeleteStack"
	opListStackResources provision.Operation = "cloudformation:ListStackResources"
)

// ListStacks returns all live stacks. Deleted stacks are not listed.
func (b *Backend) ListStacks(ctx context.Context) ([]resource.Stack, error) {
	p := cloudformation.NewDescribeStacksPaginator(b.cfnClient, &cloudformation.DescribeStacksInput{})
	stacks, err := paginate(p.HasMorePages, func() ([]cfntypes.Stack, error) {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		return page.Stacks, nil
	})
	if err != nil {
		return nil, wrapError(provision.Request{Operation: opDescribeStacks}, err)
	}

	out := make([]resource.Stack, 0, len(stacks))
	for _, s := range stacks {
		out = append(out, convertStack(s))
	}
	return out, nil
}

// DescribeStack returns one stack by name or id.
func (b *Backend) DescribeStack(ctx context.Context, id string) (*resource.Stack, error) {
	req := provision.Request{Operation: opDescribeStacks, Params: []provision.Param{{Name: "StackName", Value: id}}}

	out, err := b.cfnClient.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(id)})
	if err != nil {
		return nil, wrapError(req, err)
	}
	if len(out.Stacks) == 0 {
		return nil, provision.NewNotFoundError(req, 0, fmt.Errorf("stack %s does not exist", id))
	}

	st := convertStack(out.Stacks[0])
	return &st, nil
}

// CreateStack starts creating a stack and returns its id.
func (b *Backend) CreateStack(ctx context.Context, spec provision.StackSpec) (string, error) {
	req := provision.Request{Operation: opCreateStack, Params: []provision.Param{{Name: "StackName", Value: spec.Name}}}

	in := &cloudformation.CreateStackInput{
		StackName:       aws.String(spec.Name),
		Parameters:      stackParameters(spec.Parameters),
		Tags:            stackTags(spec.Tags),
		DisableRollback: aws.Bool(spec.DisableRollback),
	}
	switch {
	case spec.TemplateBody != "":
		in.TemplateBody = aws.String(spec.TemplateBody)
	case spec.TemplateURL != "":
		in.TemplateURL = aws.String(spec.TemplateURL)
	default:
		return "", fmt.Errorf("create stack %s: no template", spec.Name)
	}
	for _, c := range spec.Capabilities {
		in.Capabilities = append(in.Capabilities, cfntypes.Capability(c))
	}
	if spec.TimeoutMinutes > 0 {
		in.TimeoutInMinutes = aws.Int32(spec.TimeoutMinutes)
	}

	out, err := b.cfnClient.CreateStack(ctx, in)
	if err != nil {
		return "", wrapError(req, err)
	}
	return aws.ToString(out.StackId), nil
}

// DeleteStack starts deleting a stack.
func (b *Backend) DeleteStack(ctx context.Context, id string) error {
	req := provision.Request{Operation: opDeleteStack, Params: []provision.Param{{Name: "StackName", Value: id}}}
	_, err := b.cfnClient.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(id)})
	return wrapError(req, err)
}

// ListStackResources lists the resources of one stack.
func (b *Backend) ListStackResources(ctx context.Context, stackID string) ([]resource.StackResource, error) {
	req := provision.Request{Operation: opListStackResources, Params: []provision.Param{{Name: "StackName", Value: stackID}}}

	p := cloudformation.NewListStackResourcesPaginator(b.cfnClient, &cloudformation.ListStackResourcesInput{StackName: aws.String(stackID)})
	summaries, err := paginate(p.HasMorePages, func() ([]cfntypes.StackResourceSummary, error) {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		return page.StackResourceSummaries, nil
	})
	if err != nil {
		return nil, wrapError(req, err)
	}

	out := make([]resource.StackResource, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, resource.StackResource{
			LogicalID:    aws.ToString(s.LogicalResourceId),
			PhysicalID:   aws.ToString(s.PhysicalResourceId),
			Type:         aws.ToString(s.ResourceType),
			Status:       string(s.ResourceStatus),
			StatusReason: aws.ToString(s.ResourceStatusReason),
			LastUpdated:  aws.ToTime(s.LastUpdatedTimestamp),
		})
	}
	return out, nil
}

func convertStack(s cfntypes.Stack) resource.Stack {
	st := resource.Stack{
		ID:           aws.ToString(s.StackId),
		Name:         aws.ToString(s.StackName),
		Status:       string(s.StackStatus),
		StatusReason: aws.ToString(s.StackStatusReason),
		Tags:         make(map[string]string, len(s.Tags)),
		Outputs:      make(map[string]string, len(s.Outputs)),
		CreatedAt:    aws.ToTime(s.CreationTime),
	}
	for _, t := range s.Tags {
		st.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	for _, o := range s.Outputs {
		st.Outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return st
}

func stackParameters(values map[string]string) []cfntypes.Parameter {
	keys := sortedKeys(values)
	out := make([]cfntypes.Parameter, 0, len(keys))
	for _, k := range keys {
		out = append(out, cfntypes.Parameter{ParameterKey: aws.String(k), ParameterValue: aws.String(values[k])})
	}
	return out
}

func stackTags(tags map[string]string) []cfntypes.Tag {
	keys := sortedKeys(tags)
	out := make([]cfntypes.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, cfntypes.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
