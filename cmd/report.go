package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/depdive/core"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/iocache"
	"github.com/huangsam/depdive/schema"
)

// reportBackendFromViper reads and validates the report backend settings.
func reportBackendFromViper() (schema.DatabaseBackend, string, error) {
	backend := schema.DatabaseBackend(viper.GetString("report-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("report-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// reportSetup loads minimal configuration needed for report store operations.
// This is used by commands that need the store without full shared setup.
func reportSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	backend, connStr, err := reportBackendFromViper()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no review cache for report commands)
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}

	cfg.ReportBackend = backend
	cfg.ReportDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// reportSetupMinimal wraps reportSetup to provide PreRunE for report commands.
func reportSetupMinimal(_ *cobra.Command, _ []string) error {
	return reportSetup()
}

// reportMigrateSetup loads the configuration needed for migrations.
// It does NOT open the store, so migrations can run on a fresh or dirty database.
func reportMigrateSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	backend, connStr, err := reportBackendFromViper()
	if err != nil {
		return err
	}
	cfg.ReportBackend = backend
	cfg.ReportDBConnect = connStr
	return nil
}

// reportCmd focused on report store management.
//
// Note: Most report subcommands use minimal initialization (reportSetup) instead of
// the full sharedSetup used by analysis commands.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage queued package updates and stored analysis results",
	Long: `Manage the report store used by batch mode.

The store keeps every queued package update and, once analyzed, its phantom
files, phantom lines, line attribution, commit reviews or failure reason.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  add     - Queue a package update for 'depdive batch'
  status  - Show store statistics
  export  - Export phantom lines and attributions to Parquet
  clear   - Remove all stored data
  migrate - Run database schema migrations

Examples:
  # Queue an update, then analyze everything pending
  depdive report add npm left-pad 1.1.0 1.1.1
  depdive batch --registry-root ./registry

  # Export for analysis in pandas/DuckDB
  depdive report export --output-file results`,
}

// reportAddCmd queues one package update.
var reportAddCmd = &cobra.Command{
	Use:   "add <ecosystem> <package> <old-version> <new-version>",
	Short: "Queue a package update for batch analysis",
	Long: `Register a package update as pending in the report store.
Adding an update that is already queued returns the existing entry.

Examples:
  depdive report add npm left-pad 1.1.0 1.1.1
  depdive report add composer monolog/monolog 3.4.0 3.5.0 --repository https://github.com/Seldaek/monolog`,
	Args:    cobra.ExactArgs(4),
	PreRunE: reportSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteEnqueue(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Failed to queue package update", err)
		}
	},
}

// reportClearCmd clears the report data.
var reportClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all queued updates and stored results",
	Long: `Delete all queued package updates and their analysis results.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  depdive report export --output-file backup
  depdive report clear`,
	PreRunE: reportMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearReports(cfg.ReportBackend, iocache.GetReportDBFilePath(), cfg.ReportDBConnect); err != nil {
			contract.LogFatal("Failed to clear report data", err)
		}
		fmt.Println("Report data cleared successfully.")
	},
}

// reportStatusCmd shows report store status.
var reportStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display report store statistics and connection details",
	Long: `Show the backend, connection state, number of queued, analyzed and
failed updates, and table sizes of the report store.

Examples:
  depdive report status`,
	PreRunE: reportSetupMinimal,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetReportStore()
		if store == nil {
			contract.LogFatal("Failed to get report status", fmt.Errorf("report store is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get report status", err)
		}
		iocache.PrintReportStatus(os.Stdout, status)
	},
}

// reportExportCmd exports stored results to Parquet files.
var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export phantom lines and attributions to Parquet",
	Long: `Export stored results to Parquet for use with analytics tools.

Writes two files next to each other:
- <prefix>.phantom_lines.parquet
- <prefix>.attributions.parquet

Requires: --output-file parameter (used as the prefix)

Examples:
  depdive report export --output-file results
  duckdb -c "SELECT category, count(*) FROM read_parquet('results.attributions.parquet') GROUP BY 1"`,
	PreRunE: reportSetupMinimal,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteReportExport(os.Stderr, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export report data", err)
		}
	},
}

// reportMigrateCmd runs database migrations for the report store.
var reportMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the report store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  depdive report migrate

  # Rollback to initial state
  depdive report migrate --target-version 0`,
	PreRunE: reportMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		connStr := cfg.ReportDBConnect
		if cfg.ReportBackend == schema.SQLiteBackend && connStr == "" {
			connStr = iocache.GetReportDBFilePath()
		}
		msg, err := iocache.MigrateReports(cfg.ReportBackend, connStr, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(msg)
	},
}
