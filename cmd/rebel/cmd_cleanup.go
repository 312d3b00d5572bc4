package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidowb/rebel/pkg/resource"
)

const vpcResourceType = "AWS::EC2::VPC"

var (
	cleanupDryRun  bool
	cleanupAutoYes bool
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Tear down VPCs and everything that depends on them",
	Long: `Delete a VPC after removing its dependents in a fixed order: load
balancers, instances, database instances, database subnet groups,
network interfaces, subnets, security groups, route tables and internet
gateways.

Default security groups and route tables with active associations are
left in place. A dependent that cannot be deleted is reported and the
teardown continues; only a failed VPC delete fails the command.`,
	Example: `  rebel cleanup vpc vpc-0a1b2c3d          # Tear down one VPC
  rebel cleanup vpc vpc-0a1b2c3d --dry-run # Show what would be deleted
  rebel cleanup all --yes                  # Every non-default VPC
  rebel cleanup stack payments-stage       # VPCs of a stack, then the stack`,
}

var cleanupVPCCmd = &cobra.Command{
	Use:   "vpc <vpc-id>...",
	Short: "Tear down one or more VPCs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCleanupVPC,
}

var cleanupAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Tear down every non-default VPC in the region",
	Args:  cobra.NoArgs,
	RunE:  runCleanupAll,
}

var cleanupStackCmd = &cobra.Command{
	Use:   "stack <pattern>",
	Short: "Tear down the VPCs of a stack, then delete the stack",
	Args:  cobra.ExactArgs(1),
	RunE:  runCleanupStack,
}

var cleanupTreeCmd = &cobra.Command{
	Use:   "tree <kind> <id>",
	Short: "Delete a resource and its dependents, leaves first",
	Args:  cobra.ExactArgs(2),
	RunE:  runCleanupTree,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.AddCommand(cleanupVPCCmd, cleanupAllCmd, cleanupStackCmd, cleanupTreeCmd)

	cleanupCmd.PersistentFlags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be deleted without deleting")
	cleanupAllCmd.Flags().BoolVarP(&cleanupAutoYes, "yes", "y", false, "Confirm deleting every non-default VPC")
}

func dryRun() bool {
	return cleanupDryRun || cfg.Cleanup.DryRun
}

func runCleanupVPC(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	engine := s.engine(dryRun())
	for _, id := range args {
		report, err := engine.TeardownRoot(cmd.Context(), id)
		if report != nil {
			printReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func runCleanupAll(cmd *cobra.Command, _ []string) error {
	if !cleanupAutoYes && !dryRun() {
		return errors.New("refusing to delete every VPC without --yes (use --dry-run to preview)")
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	reports, err := s.engine(dryRun()).TeardownAll(cmd.Context())
	for _, report := range reports {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

func runCleanupStack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.resolver().Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	monitor, progress, err := s.monitor(out)
	if err != nil {
		return err
	}
	defer progress.Close()

	resources, err := monitor.CollectResources(ctx, st.ID)
	if err != nil {
		return err
	}

	engine := s.engine(dryRun())
	for _, vpc := range stackVPCs(resources) {
		report, err := engine.TeardownRoot(ctx, vpc)
		if report != nil {
			printReport(out, report)
		}
		if err != nil {
			return err
		}
	}

	if dryRun() {
		fmt.Fprintf(out, "would delete stack %s\n", st.Name)
		return nil
	}
	return monitor.DeleteAndAwait(ctx, *st, true, false)
}

// stackVPCs returns the ids of the VPCs a stack created, nested stacks
// included.
func stackVPCs(resources []resource.StackResource) []string {
	var ids []string
	for _, r := range resources {
		if r.Type == vpcResourceType && r.PhysicalID != "" {
			ids = append(ids, r.PhysicalID)
		}
	}
	return ids
}

func runCleanupTree(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	forest, err := s.builder().Build(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if len(forest) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s does not exist, nothing to do\n", args[0], args[1])
		return nil
	}

	report, err := s.engine(dryRun()).TeardownTree(cmd.Context(), forest)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}
