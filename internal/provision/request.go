// Package provision defines the contract between rebel's core and the
// provisioning API: declarative request templates, the operations the core
// consumes, and the transport error every backend reports.
package provision

import (
	"fmt"
	"strings"
)

// Operation names one provisioning API call, "<service>:<Action>".
type Operation string

// Placeholders understood by Bind.
const (
	PlaceholderID     = "{id}"
	PlaceholderParent = "{parent}"
)

// Vars are the values substituted into a request template.
type Vars struct {
	ID     string
	Parent string
}

func (v Vars) expand(s string) string {
	s = strings.ReplaceAll(s, PlaceholderID, v.ID)
	return strings.ReplaceAll(s, PlaceholderParent, v.Parent)
}

// Param is a named scalar argument of a request.
type Param struct {
	Name  string
	Value string
}

// Filter is a server-side filter: items match when the named attribute
// equals any of the values.
type Filter struct {
	Name   string
	Values []string
}

// Request is a provisioning call, either a concrete call or a template
// whose params and filter values still hold placeholders.
type Request struct {
	Operation Operation
	Params    []Param
	Filters   []Filter
}

// Bind returns a copy of r with placeholders replaced by vars.
func (r Request) Bind(vars Vars) Request {
	out := Request{Operation: r.Operation}
	for _, p := range r.Params {
		out.Params = append(out.Params, Param{Name: p.Name, Value: vars.expand(p.Value)})
	}
	out.Filters = BindFilters(r.Filters, vars)
	return out
}

// WithFilters returns a copy of r with filters appended.
func (r Request) WithFilters(filters ...Filter) Request {
	out := r
	out.Filters = append(append([]Filter(nil), r.Filters...), filters...)
	return out
}

// Param returns the value of the named param.
func (r Request) Param(name string) (string, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// String renders the request the way it is echoed on failure, e.g.
// "ec2:DeleteVpc VpcId=vpc-123" or
// "ec2:DescribeSubnets --filters Name=vpc-id,Values=vpc-123".
func (r Request) String() string {
	parts := []string{string(r.Operation)}
	for _, p := range r.Params {
		parts = append(parts, p.Name+"="+p.Value)
	}
	if len(r.Filters) > 0 {
		filters := make([]string, 0, len(r.Filters))
		for _, f := range r.Filters {
			filters = append(filters, fmt.Sprintf("Name=%s,Values=%s", f.Name, strings.Join(f.Values, ",")))
		}
		parts = append(parts, "--filters", strings.Join(filters, " "))
	}
	return strings.Join(parts, " ")
}

// BindFilters substitutes vars into every filter value.
func BindFilters(filters []Filter, vars Vars) []Filter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		values := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			values = append(values, vars.expand(v))
		}
		out = append(out, Filter{Name: f.Name, Values: values})
	}
	return out
}
