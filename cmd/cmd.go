// Package cmd defines the command-line interface for depdive.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(phantomCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the report subcommands to the parent report command
	reportCmd.AddCommand(reportAddCmd)
	reportCmd.AddCommand(reportClearCmd)
	reportCmd.AddCommand(reportStatusCmd)
	reportCmd.AddCommand(reportExportCmd)
	reportCmd.AddCommand(reportMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().Bool("detail", false, "Print per-commit metadata and per-line attribution")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("emoji", "no", "Enable emojis in headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("workspace", "", "Parent directory for repository working copies (default: system temp dir)")
	rootCmd.PersistentFlags().String("registry-root", "", "Directory of extracted package versions laid out as <ecosystem>/<package>/<version>")
	rootCmd.PersistentFlags().String("repository", "", "Clone URL or local path of the source repository (default: located from the registry)")
	rootCmd.PersistentFlags().String("directory", "", "Package directory inside the repository (default: located from manifests)")
	rootCmd.PersistentFlags().String("old-commit", "", "Commit to use instead of the old release tag")
	rootCmd.PersistentFlags().String("new-commit", "", "Commit to use instead of the new release tag")
	rootCmd.PersistentFlags().Bool("skip-review", false, "Skip commit review classification")
	rootCmd.PersistentFlags().Bool("move-correction", true, "Treat phantom lines that only moved between files as explained")
	rootCmd.PersistentFlags().String("github-tokens", "", "Comma-separated GitHub tokens (prefer the GITHUB_TOKENS env var)")
	rootCmd.PersistentFlags().Float64("github-rate-limit", contract.DefaultRateLimit, "GitHub API requests per second")
	rootCmd.PersistentFlags().String("github-base-url", "", "GitHub Enterprise API URL (e.g., https://ghe.example.com/api/v3/)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Review cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("report-backend", string(schema.SQLiteBackend), "Report store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("report-db-connect", "", "Database connection string for the report store (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", string(schema.TextLog), "Log format: text or json")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of batchCmd to Viper
	batchCmd.Flags().Int("workers", contract.DefaultWorkers, "Number of concurrent analyses")
	batchCmd.Flags().IntP("limit", "l", contract.DefaultBatchLimit, "Maximum number of pending updates to process")
	if err := viper.BindPFlags(batchCmd.Flags()); err != nil {
		contract.LogFatal("Error binding batch flags", err)
	}

	// Bind all flags of reportMigrateCmd to Viper
	reportMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(reportMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding report migrate flags", err)
	}
}
