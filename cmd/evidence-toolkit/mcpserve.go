package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	evtmcp "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/mcp"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Run the read-only MCP server over stdio for finished case artifacts",
	RunE:  runMCPServe,
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	server := evtmcp.NewServer(st)
	return server.Run(context.Background(), &mcp.StdioTransport{})
}
