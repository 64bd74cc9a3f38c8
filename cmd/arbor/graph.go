package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var graphCmd = &cobra.Command{
	Use:   "graph <tree.yaml>",
	Short: "Print a tree description as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, err := parseTree(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(graph.FromTrees(roots...)))
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <tree.yaml>",
	Short: "Summarize a tree description",
	Long:  `Prints a markdown table of the nodes of each tree, rendered for the terminal when stdout is one.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, err := parseTree(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		md := tui.Describe(roots...)

		raw, _ := cmd.Flags().GetBool("raw")
		if !raw && isTerminal(cmd.OutOrStdout()) {
			if md, err = tui.NewRenderer()(md); err != nil {
				return err
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().Bool("raw", false, "Print markdown without terminal rendering")
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
