package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	hutchmcp "github.com/Jonathanferreras/watch-the-hutch/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the bridge state and
event history as read-only tools. Supports stdio (default) and HTTP transports.

In stdio mode the server speaks JSON-RPC over stdin/stdout and logs to stderr.
'hutch serve' also mounts the same tools at /mcp behind an admin session.`,
		Example: `  hutch mcp                               # stdio mode
  hutch mcp --transport http --port 3001  # Streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, transport, port, verbose)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runMCP(cmd *cobra.Command, transport string, port int, verbose bool) error {
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Logging, verbose)

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	mcpSrv := hutchmcp.NewMCPServer(newEventService(st, cfg, logger), versionString(), logger)

	if transport == "http" {
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	}
	return mcpSrv.ServeStdio()
}
