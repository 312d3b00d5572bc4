package main

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/internal/stack"
)

var (
	stackTemplate        string
	stackTemplateURL     string
	stackParams          []string
	stackParamsFile      string
	stackTags            []string
	stackSync            bool
	stackVerbose         bool
	stackTimeout         int32
	stackDisableRollback bool
)

// stackCmd represents the stack command
var stackCmd = &cobra.Command{
	Use:   "stack",
	Short: "Create, inspect and delete CloudFormation stacks",
	Long: `Manage the CloudFormation stacks created by rebel. Only stacks
carrying the provenance tag (created-by=rebel unless configured
otherwise) are visible.

Stacks are selected by pattern: an exact name wins, otherwise the pattern
must match exactly one stack name as a substring.`,
}

var stackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stacks",
	Args:  cobra.NoArgs,
	RunE:  runStackList,
}

var stackCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a stack",
	Example: `  rebel stack create web --template web.yml --param Env=dev --sync --verbose
  rebel stack create web --template-url https://bucket.s3.amazonaws.com/web.yml --params-file dev.yml`,
	Args: cobra.ExactArgs(1),
	RunE: runStackCreate,
}

var stackDeleteCmd = &cobra.Command{
	Use:   "delete <pattern>",
	Short: "Delete a stack",
	Args:  cobra.ExactArgs(1),
	RunE:  runStackDelete,
}

var stackOutputsCmd = &cobra.Command{
	Use:   "outputs <pattern> [key]",
	Short: "Show stack outputs, or the value of one output",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runStackOutputs,
}

var stackResourcesCmd = &cobra.Command{
	Use:   "resources <pattern>",
	Short: "List stack resources, nested stacks included",
	Args:  cobra.ExactArgs(1),
	RunE:  runStackResources,
}

var stackParamsCmd = &cobra.Command{
	Use:   "params <template-file>",
	Short: "List the parameters a template declares",
	Args:  cobra.ExactArgs(1),
	RunE:  runStackParams,
}

func init() {
	rootCmd.AddCommand(stackCmd)
	stackCmd.AddCommand(stackListCmd, stackCreateCmd, stackDeleteCmd, stackOutputsCmd, stackResourcesCmd, stackParamsCmd)

	stackCreateCmd.Flags().StringVarP(&stackTemplate, "template", "t", "", "Template file (JSON or YAML)")
	stackCreateCmd.Flags().StringVar(&stackTemplateURL, "template-url", "", "Template URL in S3")
	stackCreateCmd.Flags().StringArrayVarP(&stackParams, "param", "p", nil, "Parameter as key=value (repeatable)")
	stackCreateCmd.Flags().StringVar(&stackParamsFile, "params-file", "", "YAML file of parameter values")
	stackCreateCmd.Flags().StringArrayVar(&stackTags, "tag", nil, "Stack tag as key=value (repeatable)")
	stackCreateCmd.Flags().Int32Var(&stackTimeout, "timeout", 0, "Creation timeout in minutes")
	stackCreateCmd.Flags().BoolVar(&stackDisableRollback, "disable-rollback", false, "Keep resources of a failed creation")
	stackCreateCmd.MarkFlagsOneRequired("template", "template-url")
	stackCreateCmd.MarkFlagsMutuallyExclusive("template", "template-url")

	for _, c := range []*cobra.Command{stackCreateCmd, stackDeleteCmd} {
		c.Flags().BoolVar(&stackSync, "sync", false, "Wait until the operation completes")
		c.Flags().BoolVarP(&stackVerbose, "verbose", "v", false, "Show resource progress while waiting")
	}
}

func runStackList(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	stacks, err := s.resolver().List(cmd.Context())
	if err != nil {
		return err
	}
	return printStacks(cmd.OutOrStdout(), stacks)
}

func runStackCreate(cmd *cobra.Command, args []string) error {
	spec, err := buildStackSpec(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	monitor, progress, err := s.monitor(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer progress.Close()

	st, err := monitor.CreateAndAwait(cmd.Context(), spec, stackSync, stackVerbose)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", st.Name, st.Status)
	return nil
}

// buildStackSpec assembles the create request from flags and config.
// Parameters given with --param override those from --params-file.
func buildStackSpec(name string) (provision.StackSpec, error) {
	spec := provision.StackSpec{
		Name:            name,
		TemplateURL:     stackTemplateURL,
		Parameters:      map[string]string{},
		Tags:            map[string]string{},
		Capabilities:    cfg.Stacks.Capabilities,
		TimeoutMinutes:  stackTimeout,
		DisableRollback: stackDisableRollback,
	}

	if stackParamsFile != "" {
		fromFile, err := stack.LoadParameters(stackParamsFile)
		if err != nil {
			return spec, err
		}
		maps.Copy(spec.Parameters, fromFile)
	}
	fromFlags, err := parseKeyValues(stackParams)
	if err != nil {
		return spec, fmt.Errorf("--param: %w", err)
	}
	maps.Copy(spec.Parameters, fromFlags)

	maps.Copy(spec.Tags, cfg.Stacks.DefaultTags)
	tags, err := parseKeyValues(stackTags)
	if err != nil {
		return spec, fmt.Errorf("--tag: %w", err)
	}
	maps.Copy(spec.Tags, tags)

	if stackTemplate != "" {
		body, err := os.ReadFile(stackTemplate)
		if err != nil {
			return spec, fmt.Errorf("read template: %w", err)
		}
		spec.TemplateBody = string(body)

		declared, err := stack.TemplateParameters(body)
		if err != nil {
			return spec, err
		}
		if missing := stack.MissingParameters(declared, spec.Parameters); len(missing) > 0 {
			return spec, fmt.Errorf("template %s requires parameters: %s", stackTemplate, strings.Join(missing, ", "))
		}
	}
	return spec, nil
}

func runStackDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.resolver().Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	monitor, progress, err := s.monitor(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer progress.Close()

	return monitor.DeleteAndAwait(cmd.Context(), *st, stackSync, stackVerbose)
}

func runStackOutputs(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.resolver().Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if len(args) == 2 {
		value, err := st.Output(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	}
	return printOutputs(cmd.OutOrStdout(), st)
}

func runStackResources(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.resolver().Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	resources, err := stack.NewMonitor(s.backend).CollectResources(cmd.Context(), st.ID)
	if err != nil {
		return err
	}
	return printStackResources(cmd.OutOrStdout(), resources)
}

func runStackParams(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	params, err := stack.TemplateParameters(body)
	if err != nil {
		return err
	}
	return printParameters(cmd.OutOrStdout(), params)
}
