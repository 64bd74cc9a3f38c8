package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/arbor"
	mcpAdapter "github.com/aretw0/arbor/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve a tree to MCP clients",
	Long: `Mounts a tree like serve does and exposes its nodes, features and snapshots
as Model Context Protocol tools. Stdio is the default transport; --sse serves over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = app.Close(context.Background()) }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := mountTrees(ctx, cmd, app, logger); err != nil {
			return err
		}

		srv := mcpAdapter.NewServer(app, arbor.Version, logger)
		sse, _ := cmd.Flags().GetBool("sse")
		if !sse {
			return srv.ServeStdio()
		}
		port, _ := cmd.Flags().GetInt("port")
		addr := fmt.Sprintf(":%d", port)
		return srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("sse", false, "Serve over SSE instead of stdio")
	mcpCmd.Flags().Int("port", 8080, "SSE listen port")
	addTreeFlags(mcpCmd)
}
