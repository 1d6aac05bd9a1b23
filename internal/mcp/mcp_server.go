// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/huangsam/depdive/internal/contract"
)

// analysisFunc runs one analysis for a validated config.
type analysisFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (any, error)

// packageArgs are the arguments every tool accepts to describe a package update.
func packageArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("ecosystem",
			mcp.Description("Package registry of the package."),
			mcp.Enum("npm", "cargo", "pypi", "rubygems", "composer"),
			mcp.Required()),
		mcp.WithString("package", mcp.Description("Package name as published in the registry."), mcp.Required()),
		mcp.WithString("old_version", mcp.Description("The earlier published version."), mcp.Required()),
		mcp.WithString("new_version", mcp.Description("The later published version."), mcp.Required()),
		mcp.WithString("repository", mcp.Description("Clone URL or local path of the source repository (located from the registry if omitted).")),
		mcp.WithString("directory", mcp.Description("Package directory inside the repository (located from manifests if omitted).")),
		mcp.WithString("old_commit", mcp.Description("Commit to use instead of the old release tag.")),
		mcp.WithString("new_commit", mcp.Description("Commit to use instead of the new release tag.")),
	}
}

// NewMCPServer initializes and configures the depdive MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"depdive Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:     baseCfg,
		mgr:         mgr,
		runAnalysis: runAnalysis,
		runPhantom:  runPhantom,
	}

	// --- 1. Tool: analyze_package_update ---
	s.AddTool(mcp.NewTool("analyze_package_update",
		append([]mcp.ToolOption{
			mcp.WithDescription("Reconcile a package update published to a registry with its source repository. " +
				"Returns phantom files and lines, the commits behind every changed line and their review categories."),
			mcp.WithBoolean("skip_review", mcp.Description("Skip commit review classification (no GitHub API calls).")),
		}, packageArgs()...)...,
	), h.handleAnalyzePackageUpdate)

	// --- 2. Tool: find_phantoms ---
	s.AddTool(mcp.NewTool("find_phantoms",
		append([]mcp.ToolOption{
			mcp.WithDescription("Find files and lines published in a package update that the source repository cannot explain."),
		}, packageArgs()...)...,
	), h.handleFindPhantoms)

	return s
}

// StartMCPServer starts the depdive MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
