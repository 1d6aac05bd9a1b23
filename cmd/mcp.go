package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/depdive/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the depdive MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents audit package updates.

Tools:
  analyze_package_update - full analysis with attribution and review categories
  find_phantoms          - phantom files and lines only

Flags given here (registry root, tokens, cache backend) are the defaults for every tool call.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Headers are printed to stderr and logs stay at warn,
		// so stdout carries nothing but the protocol.
		return packageSetupWrapper(cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
