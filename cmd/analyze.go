package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/depdive/core"
	"github.com/huangsam/depdive/internal/contract"
)

// analyzeCmd performs the full analysis of one package update.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <ecosystem> <package> <old-version> <new-version>",
	Short: "Reconcile a package update with its repository and classify the commits behind it.",
	Long: `Run the full analysis of one package update.

The registry diff between the two versions is compared with the repository
history between their release commits. The report lists:
- Phantom files: published files the repository never had
- Phantom lines: published lines no commit in range explains
- The commit behind every added and removed line
- The review category of each of those commits, taken from GitHub

Published versions are read from --registry-root, a directory holding the
extracted packages as <ecosystem>/<package>/<version>.

Examples:
  # Analyze an npm update, locating the repository from the registry
  depdive analyze npm left-pad 1.1.0 1.1.1 --registry-root ./registry

  # Point at a monorepo package and print per-line attribution
  depdive analyze cargo serde 1.0.100 1.0.101 --registry-root ./registry \
    --repository https://github.com/serde-rs/serde --directory serde --detail

  # Skip GitHub calls and export JSON
  depdive analyze pypi requests 2.31.0 2.32.0 --registry-root ./registry \
    --skip-review --output json --output-file requests.json`,
	Args:    cobra.ExactArgs(4),
	PreRunE: packageSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnalyze(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run analysis", err)
		}
	},
}

// phantomCmd performs reconciliation only.
var phantomCmd = &cobra.Command{
	Use:   "phantom <ecosystem> <package> <old-version> <new-version>",
	Short: "List published files and lines that the repository cannot explain.",
	Long: `Find phantom files and lines of one package update without blaming or
classifying commits. This is much faster than 'analyze' and needs no GitHub access.

Examples:
  # Check an update for phantom content
  depdive phantom npm event-stream 3.3.5 3.3.6 --registry-root ./registry

  # CSV for spreadsheets
  depdive phantom rubygems rails 7.1.0 7.1.1 --registry-root ./registry --output csv`,
	Args:    cobra.ExactArgs(4),
	PreRunE: packageSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePhantom(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run phantom analysis", err)
		}
	},
}

// batchCmd analyzes the pending updates of the report store.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze pending package updates from the report store.",
	Long: `Process package updates queued with 'depdive report add'.

Each update is analyzed in its own working copy, with at most --workers running
at once. Results are written to the report store:
- A report with its phantom files, phantom lines, attribution and reviews
- Or the reason the analysis failed

A failing update never stops the batch. Updates that ran out of GitHub rate
limit stay pending for the next run.

Examples:
  # Process up to 50 pending updates with 4 workers
  depdive batch --limit 50 --workers 4 --registry-root ./registry

  # Use a shared PostgreSQL store
  DEPDIVE_REPORT_BACKEND=postgresql DEPDIVE_REPORT_DB_CONNECT="host=... dbname=..." depdive batch`,
	Args:    cobra.NoArgs,
	PreRunE: reportSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteBatch(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run batch", err)
		}
	},
}
