package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guidowb/rebel/internal/cleanup"
	"github.com/guidowb/rebel/internal/stack"
	"github.com/guidowb/rebel/pkg/resource"
)

func printReport(w io.Writer, r *cleanup.Report) {
	if r.Absent {
		fmt.Fprintf(w, "%s does not exist, nothing to do\n", r.Root)
		return
	}

	verb := "deleted"
	if r.DryRun {
		verb = "would delete"
	}
	for _, d := range r.Deletions {
		if d.Note != "" {
			fmt.Fprintf(w, "%s %s %s (%s)\n", verb, d.Kind, d.ID, d.Note)
		} else {
			fmt.Fprintf(w, "%s %s %s\n", verb, d.Kind, d.ID)
		}
		if r.DryRun {
			for _, req := range d.Requests {
				fmt.Fprintf(w, "   %s\n", req)
			}
		}
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "skipped %s %s (%s)\n", s.Kind, s.ID, s.Reason)
	}
	if r.Failures.HasErrors() {
		for _, f := range r.Failures.Failures {
			fmt.Fprintf(w, "failed %s %s: %v\n", f.Kind, f.ID, f.Err)
		}
	}
}

func printStacks(w io.Writer, stacks []resource.Stack) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tCREATED")
	for _, s := range stacks {
		created := "-"
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Status, created)
	}
	return tw.Flush()
}

func printStackResources(w io.Writer, resources []resource.StackResource) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESOURCE\tTYPE\tSTATUS\tPHYSICAL ID")
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", resource.ResourceKey(r), r.Type, r.Status, r.PhysicalID)
	}
	return tw.Flush()
}

func printOutputs(w io.Writer, st *resource.Stack) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range st.OutputKeys() {
		fmt.Fprintf(tw, "%s\t%s\n", k, st.Outputs[k])
	}
	return tw.Flush()
}

func printParameters(w io.Writer, params []stack.Parameter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tTYPE\tDEFAULT\tDESCRIPTION")
	for _, p := range params {
		def := "(required)"
		switch {
		case p.HasDefault && p.NoEcho:
			def = "****"
		case p.HasDefault:
			def = p.Default
		}
		desc := p.Description
		if len(p.AllowedValues) > 0 {
			desc = strings.TrimSpace(desc + " [" + strings.Join(p.AllowedValues, "|") + "]")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Type, def, desc)
	}
	return tw.Flush()
}

// parseKeyValues parses repeated key=value flags.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out[k] = v
	}
	return out, nil
}
