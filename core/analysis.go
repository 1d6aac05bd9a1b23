package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/depdive/core/attribution"
	"github.com/huangsam/depdive/core/reconcile"
	"github.com/huangsam/depdive/core/registry"
	"github.com/huangsam/depdive/core/repodiff"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/outwriter"
	"github.com/huangsam/depdive/schema"
)

// Analyzer runs the reconciliation pipeline for one package update at a time.
// It holds no per-analysis state, so one Analyzer may serve concurrent runs.
type Analyzer struct {
	client         contract.GitClient
	locator        contract.RepositoryLocator
	differ         contract.VersionDiffer
	classifier     contract.ReviewClassifier
	workspaceDir   string
	moveCorrection bool

	header    io.Writer
	useEmojis bool
}

// NewAnalyzer wires the pipeline collaborators. A nil classifier skips review classification.
func NewAnalyzer(
	client contract.GitClient,
	locator contract.RepositoryLocator,
	differ contract.VersionDiffer,
	classifier contract.ReviewClassifier,
	workspaceDir string,
	moveCorrection bool,
) *Analyzer {
	return &Analyzer{
		client:         client,
		locator:        locator,
		differ:         differ,
		classifier:     classifier,
		workspaceDir:   workspaceDir,
		moveCorrection: moveCorrection,
	}
}

// WithHeader makes every run print a short header to w unless the context suppresses it.
func (a *Analyzer) WithHeader(w io.Writer, useEmojis bool) *Analyzer {
	a.header = w
	a.useEmojis = useEmojis
	return a
}

// session is the state shared by the stages of one analysis.
type session struct {
	repoURL string
	ws      *repodiff.Workspace
	engine  *repodiff.Engine
	result  *reconcile.Result
}

// Run performs the full analysis: reconciliation, attribution and review classification.
// When classification fails the report still carries the phantom set and the attribution,
// and is returned together with the error.
func (a *Analyzer) Run(ctx context.Context, req schema.AnalysisRequest) (*schema.AnalysisReport, error) {
	start := time.Now()
	a.printHeader(ctx, req)
	report := schema.NewAnalysisReport(req)

	s, err := a.reconcile(ctx, req, report)
	if s != nil && s.ws != nil {
		defer closeWorkspace(s.ws)
	}
	if err != nil {
		return nil, wrapAnalysisError(req, err)
	}

	added, removed, err := attribution.NewMapper(s.engine).Map(ctx, s.result)
	if err != nil {
		return nil, wrapAnalysisError(req, err)
	}
	report.AddedLOC, report.RemovedLOC = added, removed

	classifyErr := a.classify(ctx, s.repoURL, report)
	report.Stats = ComputeStats(report)

	analysisLogger(req).WithFields(logrus.Fields{
		"phantom_files": report.Stats.PhantomFileCount,
		"phantom_lines": report.Stats.PhantomLineCount,
		"commits":       len(report.CommitReview),
		"elapsed":       time.Since(start).Round(time.Millisecond),
	}).Info("analysis finished")

	if classifyErr != nil {
		return report, wrapAnalysisError(req, classifyErr)
	}
	return report, nil
}

// RunPhantom stops after reconciliation. The report carries only the phantom set and its stats.
func (a *Analyzer) RunPhantom(ctx context.Context, req schema.AnalysisRequest) (*schema.AnalysisReport, error) {
	a.printHeader(ctx, req)
	report := schema.NewAnalysisReport(req)
	s, err := a.reconcile(ctx, req, report)
	if s != nil && s.ws != nil {
		defer closeWorkspace(s.ws)
	}
	if err != nil {
		return nil, wrapAnalysisError(req, err)
	}
	report.Stats = ComputeStats(report)
	return report, nil
}

// reconcile runs every stage up to the phantom set and fills the identifying fields of report.
// The returned session owns a workspace whenever it is non-nil.
func (a *Analyzer) reconcile(ctx context.Context, req schema.AnalysisRequest, report *schema.AnalysisReport) (*session, error) {
	log := analysisLogger(req)

	repoURL, dir := req.RepositoryURL, contract.NormalizeSubdir(req.Directory)
	if repoURL == "" {
		if a.locator == nil {
			return nil, errors.New("no repository given and no locator configured")
		}
		located, locatedDir, err := a.locator.Locate(ctx, req.Ecosystem, req.Package)
		if err != nil {
			return nil, fmt.Errorf("locate repository: %w", err)
		}
		repoURL = located
		if dir == "" {
			dir = locatedDir
		}
		log.WithField("repository", repoURL).Debug("located repository")
	}
	report.RepositoryURL = repoURL

	ws, err := repodiff.OpenWorkspace(ctx, a.client, repoURL, a.workspaceDir)
	if err != nil {
		return nil, err
	}
	s := &session{repoURL: repoURL, ws: ws}

	bounds, err := repodiff.ResolveBoundaries(ctx, a.client, ws.Path,
		req.Package, req.OldVersion, req.NewVersion, req.OldCommit, req.NewCommit)
	if err != nil {
		return s, err
	}

	var subdirs contract.SubdirLocator
	if dir == "" {
		subdirs = registry.NewManifestSubdirLocator(a.client)
	}
	s.engine = repodiff.NewEngine(a.client, ws, subdirs, req.Ecosystem, req.Package)

	snap, err := s.engine.Rebuild(ctx, bounds)
	if err != nil {
		return s, err
	}
	diff, err := registry.NewAdapter(a.differ).Fetch(ctx, req.Ecosystem, req.Package, req.OldVersion, req.NewVersion)
	if err != nil {
		return s, err
	}

	res, err := reconcile.NewReconciler(s.engine, a.moveCorrection).Reconcile(ctx, snap, diff, dir)
	if err != nil {
		return s, err
	}
	s.result = res

	report.Directory = res.Subdir
	report.OldCommit = res.Snapshot.OldCommit
	report.NewCommit = res.Snapshot.NewCommit
	report.CommonAncestor = res.Snapshot.CommonAncestor
	report.Phantom = res.Phantom
	report.RepoStats = res.Snapshot.Stats()
	return s, nil
}

// classify asks for a verdict on every distinct commit of the attribution, once each.
func (a *Analyzer) classify(ctx context.Context, repoURL string, report *schema.AnalysisReport) error {
	if a.classifier == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, c := range report.AddedLOC.Commits() {
		seen[c] = struct{}{}
	}
	for _, c := range report.RemovedLOC.Commits() {
		seen[c] = struct{}{}
	}
	for _, commit := range schema.SortedKeys(seen) {
		v, err := a.classifier.Classify(ctx, schema.ReviewRequest{RepositoryURL: repoURL, Commit: commit})
		if err != nil {
			return fmt.Errorf("classify %s: %w", contract.ShortHash(commit), err)
		}
		report.CommitReview[commit] = v
	}
	return nil
}

func (a *Analyzer) printHeader(ctx context.Context, req schema.AnalysisRequest) {
	if a.header == nil || shouldSuppressHeader(ctx) {
		return
	}
	outwriter.LogAnalysisHeader(a.header, req, a.useEmojis)
}

func wrapAnalysisError(req schema.AnalysisRequest, err error) error {
	var ae *schema.AnalysisError
	if errors.As(err, &ae) {
		return err
	}
	return &schema.AnalysisError{
		Ecosystem:  req.Ecosystem,
		Package:    req.Package,
		OldVersion: req.OldVersion,
		NewVersion: req.NewVersion,
		Err:        err,
	}
}

func analysisLogger(req schema.AnalysisRequest) *logrus.Entry {
	return contract.Logger().WithFields(logrus.Fields{
		"ecosystem": req.Ecosystem,
		"package":   req.Package,
		"old":       req.OldVersion,
		"new":       req.NewVersion,
	})
}

func closeWorkspace(ws *repodiff.Workspace) {
	if err := ws.Close(); err != nil {
		contract.LogWarn("Failed to remove workspace", err)
	}
}
