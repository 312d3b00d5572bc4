package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guidowb/rebel/internal/registry"
	"github.com/guidowb/rebel/internal/tree"
)

// assetsCmd represents the assets command
var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Inspect live resources",
	Long: `List resources of one kind, or expand a resource into the tree of
resources that depend on it.

Known kinds: ` + strings.Join(registry.Default().Names(), ", "),
}

var assetsListCmd = &cobra.Command{
	Use:     "list <kind>",
	Short:   "List all resources of a kind",
	Example: `  rebel assets list vpc`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAssetsList,
}

var assetsTreeCmd = &cobra.Command{
	Use:   "tree <kind> [id]",
	Short: "Show resources of a kind with their dependents",
	Example: `  rebel assets tree vpc                # every vpc
  rebel assets tree vpc vpc-0a1b2c3d   # one vpc`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAssetsTree,
}

var assetsKindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the known resource kinds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range registry.Default().Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assetsCmd)
	assetsCmd.AddCommand(assetsListCmd, assetsTreeCmd, assetsKindsCmd)
}

func runAssetsList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	nodes, err := s.builder().List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return tree.Print(cmd.OutOrStdout(), nodes)
}

func runAssetsTree(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	var id string
	if len(args) > 1 {
		id = args[1]
	}
	forest, err := s.builder().Build(cmd.Context(), args[0], id)
	if err != nil {
		return err
	}
	return tree.Print(cmd.OutOrStdout(), forest)
}
