// Package core has core logic for reconciling published packages with their repositories.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/huangsam/depdive/core/registry"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/outwriter"
	"github.com/huangsam/depdive/internal/review"
	"github.com/huangsam/depdive/schema"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteAnalyze runs the full analysis of one package update and prints the report.
// It serves as the main entry point for the 'analyze' command.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	report, duration, err := GetAnalysisResults(ctx, cfg, mgr)
	if err != nil && report == nil {
		return err
	}
	if werr := outwriter.NewOutWriter().WriteReport(report, cfg, duration); werr != nil {
		return werr
	}
	return err
}

// ExecutePhantom runs reconciliation only and prints the phantom files and lines.
// It serves as the main entry point for the 'phantom' command.
func ExecutePhantom(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	report, duration, err := GetPhantomResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WritePhantom(report, cfg, duration)
}

// ExecuteBatch analyzes pending package updates from the report store and prints a summary.
func ExecuteBatch(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	store := mgr.GetReportStore()
	if store == nil {
		return errors.New("batch mode requires a report store. Set --report-backend")
	}
	analyzer, err := buildAnalyzer(cfg, mgr)
	if err != nil {
		return err
	}
	outcomes, err := RunBatch(ctx, analyzer, store, cfg.BatchLimit, cfg.Workers)
	if werr := outwriter.NewOutWriter().WriteBatch(outcomes, cfg, time.Since(start)); werr != nil {
		return werr
	}
	return err
}

// ExecuteEnqueue registers the package update described by cfg as pending in the report store.
func ExecuteEnqueue(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	store := mgr.GetReportStore()
	if store == nil {
		return errors.New("adding updates requires a report store. Set --report-backend")
	}
	req := cfg.Request()
	id, err := store.AddPackageUpdate(schema.PackageUpdate{
		Ecosystem:     req.Ecosystem,
		Package:       req.Package,
		RepositoryURL: req.RepositoryURL,
		Directory:     req.Directory,
		OldVersion:    req.OldVersion,
		NewVersion:    req.NewVersion,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "Queued update %d: %s/%s %s -> %s\n",
		id, req.Ecosystem, req.Package, req.OldVersion, req.NewVersion)
	return err
}

// GetAnalysisResults runs the full analysis for cfg and returns the report with its duration.
// A report whose review classification failed is returned together with the error.
func GetAnalysisResults(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.AnalysisReport, time.Duration, error) {
	start := time.Now()
	analyzer, err := buildAnalyzer(cfg, mgr)
	if err != nil {
		return nil, 0, err
	}
	report, err := analyzer.Run(ctx, cfg.Request())
	return report, time.Since(start), err
}

// GetPhantomResults runs reconciliation for cfg and returns the phantom-only report.
func GetPhantomResults(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.AnalysisReport, time.Duration, error) {
	start := time.Now()
	phantomCfg := cfg.Clone()
	phantomCfg.SkipReview = true
	analyzer, err := buildAnalyzer(phantomCfg, mgr)
	if err != nil {
		return nil, 0, err
	}
	report, err := analyzer.RunPhantom(ctx, cfg.Request())
	return report, time.Since(start), err
}

// buildAnalyzer wires the registry, git and review collaborators described by cfg.
func buildAnalyzer(cfg *contract.Config, mgr contract.StoreManager) (*Analyzer, error) {
	if cfg.RegistryRoot == "" {
		return nil, errors.New("--registry-root is required (directory of extracted package versions)")
	}
	var classifier contract.ReviewClassifier
	if !cfg.SkipReview {
		var cache contract.CacheStore
		if mgr != nil {
			cache = mgr.GetReviewCache()
		}
		source := review.NewGitHubSource(review.NewTokenPool(cfg.GitHubTokens), cfg.GitHubRateLimit, cfg.GitHubBaseURL)
		classifier = review.NewCachingClassifier(review.NewClassifier(source, enterpriseHosts(cfg.GitHubBaseURL)...), cache)
	}
	analyzer := NewAnalyzer(
		contract.NewLocalGitClient(),
		registry.NewRegistryLocator(nil),
		registry.NewSnapshotDiffer(cfg.RegistryRoot),
		classifier,
		cfg.WorkspaceDir,
		cfg.MoveCorrection,
	)
	return analyzer.WithHeader(os.Stderr, cfg.UseEmojis), nil
}

// enterpriseHosts returns the web host of a GitHub Enterprise API endpoint, if any.
func enterpriseHosts(baseURL string) []string {
	if baseURL == "" {
		return nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return []string{u.Hostname()}
}
