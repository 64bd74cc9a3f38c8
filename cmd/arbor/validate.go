package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <tree.yaml>",
	Short: "Check a tree description for consistency",
	Long:  `Parses a YAML or JSON tree description and reports unknown kinds, misplaced nodes and duplicate ids.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := runValidate(args[0], cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tree is valid! ✅ (%d nodes)\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// parseTree reads a tree description from path, "-" meaning stdin.
func parseTree(path string, stdin io.Reader) ([]dsl.Node, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return compiler.NewParser().Parse(data)
}

func runValidate(path string, stdin io.Reader) (int, error) {
	roots, err := parseTree(path, stdin)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range roots {
		_ = dsl.Walk(r, func(_, _ *dsl.Node) error {
			count++
			return nil
		})
	}
	return count, nil
}
