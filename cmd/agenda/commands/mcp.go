// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents drive the agenda over stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/agenda/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs agenda as an MCP (Model Context Protocol) server, exposing the
utterance pipeline, listing, search and index maintenance as tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  agenda mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "agenda": {
  #       "command": "agenda",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("agenda", versionInfo.Version)
	mcp.RegisterTools(server, a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := cmdLogger()
	log.Info("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	if err := a.Close(); err != nil {
		log.Warn("closing agenda", zap.Error(err))
	}
	return nil
}
