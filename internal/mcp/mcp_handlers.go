package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/huangsam/depdive/core"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager

	runAnalysis analysisFunc
	runPhantom  analysisFunc
}

func runAnalysis(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (any, error) {
	report, _, err := core.GetAnalysisResults(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func runPhantom(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (any, error) {
	report, _, err := core.GetPhantomResults(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}
	return phantomResult{PhantomSet: report.Phantom, Stats: report.Stats}, nil
}

// phantomResult is the find_phantoms payload: the phantom set with its counts.
type phantomResult struct {
	schema.PhantomSet
	Stats schema.Stats `json:"stats"`
}

// configFor builds the per-call config from the base config and the request arguments.
func (h *toolHandler) configFor(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	err := contract.RevalidatePackage(cfg,
		request.GetString("ecosystem", ""),
		request.GetString("package", ""),
		request.GetString("old_version", ""),
		request.GetString("new_version", ""),
		request.GetString("repository", ""),
		request.GetString("directory", ""),
		request.GetString("old_commit", ""),
		request.GetString("new_commit", ""),
	)
	return cfg, err
}

func (h *toolHandler) handleAnalyzePackageUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid package parameters: %v", err)), nil
	}
	cfg.SkipReview = request.GetBool("skip_review", cfg.SkipReview)

	report, err := h.runAnalysis(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleFindPhantoms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid package parameters: %v", err)), nil
	}

	result, err := h.runPhantom(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("phantom analysis failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
