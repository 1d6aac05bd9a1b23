package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/huangsam/depdive/schema"
)

// Default values for configuration.
const (
	DefaultBatchLimit = 100
	MaxBatchLimit     = 10000
	DefaultRateLimit  = 1.0 // GitHub requests per second
	DefaultLogLevel   = "warn"
)

// DefaultWorkers is the default number of concurrent batch workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Config holds the runtime configuration for an analysis.
// This struct remains the "final, validated" config.
type Config struct {
	Ecosystem  schema.Ecosystem
	Package    string
	OldVersion string
	NewVersion string

	RepositoryURL string // Clone URL or local path; located from the registry when empty
	Directory     string // Package directory inside the repository
	OldCommit     string // Optional commit overriding the old release tag
	NewCommit     string // Optional commit overriding the new release tag
	WorkspaceDir  string // Parent directory for working copies
	RegistryRoot  string // Root of extracted registry versions

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	Detail     bool
	UseEmojis  bool
	UseColors  bool

	SkipReview     bool
	MoveCorrection bool

	GitHubTokens    []string // Please use env var as this is plaintext
	GitHubRateLimit float64
	GitHubBaseURL   string

	Workers    int
	BatchLimit int

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	ReportBackend   schema.DatabaseBackend
	ReportDBConnect string // Please use env var as this is plaintext

	LogLevel  string
	LogFormat schema.LogFormat
}

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from positional args, so no tag
	EcosystemStr  string
	PackageStr    string
	OldVersionStr string
	NewVersionStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Output          string `mapstructure:"output"`
	OutputFile      string `mapstructure:"output-file"`
	Width           int    `mapstructure:"width"`
	Emoji           string `mapstructure:"emoji"`
	Color           string `mapstructure:"color"`
	Workspace       string `mapstructure:"workspace"`
	RegistryRoot    string `mapstructure:"registry-root"`
	CacheBackend    string `mapstructure:"cache-backend"`
	CacheDBConnect  string `mapstructure:"cache-db-connect"`
	ReportBackend   string `mapstructure:"report-backend"`
	ReportDBConnect string `mapstructure:"report-db-connect"`
	GitHubTokens    string `mapstructure:"github-tokens"`
	GitHubBaseURL   string `mapstructure:"github-base-url"`
	LogLevel        string `mapstructure:"log-level"`
	LogFormat       string `mapstructure:"log-format"`

	// GitHubRateLimit is requests per second against the GitHub API
	GitHubRateLimit float64 `mapstructure:"github-rate-limit"`

	// --- Fields from analyzeCmd.Flags() and phantomCmd.Flags() ---
	Repository     string `mapstructure:"repository"`
	Directory      string `mapstructure:"directory"`
	OldCommit      string `mapstructure:"old-commit"`
	NewCommit      string `mapstructure:"new-commit"`
	Detail         bool   `mapstructure:"detail"`
	SkipReview     bool   `mapstructure:"skip-review"`
	MoveCorrection bool   `mapstructure:"move-correction"`

	// --- Fields from batchCmd.Flags() ---
	Workers int `mapstructure:"workers"`
	Limit   int `mapstructure:"limit"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.GitHubTokens != nil {
		clone.GitHubTokens = slices.Clone(c.GitHubTokens)
	}
	return &clone
}

// Request builds the analysis request described by the config.
func (c *Config) Request() schema.AnalysisRequest {
	return schema.AnalysisRequest{
		Ecosystem:     c.Ecosystem,
		Package:       c.Package,
		OldVersion:    c.OldVersion,
		NewVersion:    c.NewVersion,
		RepositoryURL: c.RepositoryURL,
		Directory:     c.Directory,
		OldCommit:     c.OldCommit,
		NewCommit:     c.NewCommit,
	}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(_ context.Context, cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processPackageArgs(cfg, input); err != nil {
		return err
	}
	if err := processGitHubSettings(cfg, input); err != nil {
		return err
	}
	if err := resolveWorkspace(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and report backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Report Backend Validation ---
	cfg.ReportBackend = schema.DatabaseBackend(strings.ToLower(input.ReportBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.ReportBackend]; !ok {
		return fmt.Errorf("invalid report backend '%s'. must be sqlite, mysql, postgresql, none", input.ReportBackend)
	}
	cfg.ReportDBConnect = input.ReportDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ReportBackend, cfg.ReportDBConnect); err != nil {
		return err
	}

	// Cache and reports must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.ReportBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		reportDBPath := cfg.ReportDBConnect
		if reportDBPath == "" {
			reportDBPath = GetReportDBFilePath()
		}
		if cacheDBPath == reportDBPath {
			return fmt.Errorf("cache and report storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-package fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Detail = input.Detail
	cfg.SkipReview = input.SkipReview
	cfg.MoveCorrection = input.MoveCorrection
	cfg.RegistryRoot = input.RegistryRoot

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 2. Batch Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers
	if input.Limit <= 0 || input.Limit > MaxBatchLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxBatchLimit, input.Limit)
	}
	cfg.BatchLimit = input.Limit

	// --- 3. Logging Validation ---
	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.LogFormat = schema.LogFormat(strings.ToLower(input.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = schema.TextLog
	}
	if _, ok := schema.ValidLogFormats[cfg.LogFormat]; !ok {
		return fmt.Errorf("invalid log format '%s'. must be text, json", input.LogFormat)
	}
	if err := ConfigureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	// --- 4. Backend Validation ---
	return validateBackendConfigs(cfg, input)
}

// processPackageArgs validates the positional package arguments when they are present.
func processPackageArgs(cfg *Config, input *ConfigRawInput) error {
	cfg.RepositoryURL = strings.TrimSpace(input.Repository)
	cfg.Directory = NormalizeSubdir(input.Directory)
	cfg.OldCommit = strings.TrimSpace(input.OldCommit)
	cfg.NewCommit = strings.TrimSpace(input.NewCommit)

	if input.EcosystemStr == "" && input.PackageStr == "" {
		return nil // not a single-package command
	}

	cfg.Ecosystem = schema.Ecosystem(strings.ToLower(input.EcosystemStr))
	if _, ok := schema.ValidEcosystems[cfg.Ecosystem]; !ok {
		return fmt.Errorf("invalid ecosystem '%s'. must be npm, cargo, pypi, rubygems, composer", input.EcosystemStr)
	}
	if input.PackageStr == "" {
		return fmt.Errorf("package name is required")
	}
	cfg.Package = input.PackageStr
	if input.OldVersionStr == "" || input.NewVersionStr == "" {
		return fmt.Errorf("both old and new versions are required")
	}
	if input.OldVersionStr == input.NewVersionStr {
		return fmt.Errorf("old and new versions must differ (both are %q)", input.OldVersionStr)
	}
	cfg.OldVersion = input.OldVersionStr
	cfg.NewVersion = input.NewVersionStr
	return nil
}

// RevalidatePackage replaces the package fields of cfg and validates them as the CLI would.
// Empty repository, directory or commit arguments keep the values already in cfg.
func RevalidatePackage(cfg *Config, ecosystem, pkg, oldVersion, newVersion string, overrides ...string) error {
	input := &ConfigRawInput{
		EcosystemStr:  ecosystem,
		PackageStr:    pkg,
		OldVersionStr: oldVersion,
		NewVersionStr: newVersion,
		Repository:    cfg.RepositoryURL,
		Directory:     cfg.Directory,
		OldCommit:     cfg.OldCommit,
		NewCommit:     cfg.NewCommit,
	}
	fields := []*string{&input.Repository, &input.Directory, &input.OldCommit, &input.NewCommit}
	for i, v := range overrides {
		if i < len(fields) && v != "" {
			*fields[i] = v
		}
	}
	if ecosystem == "" {
		return fmt.Errorf("ecosystem is required")
	}
	return processPackageArgs(cfg, input)
}

// processGitHubSettings collects tokens from the flag or the environment.
func processGitHubSettings(cfg *Config, input *ConfigRawInput) error {
	raw := input.GitHubTokens
	if raw == "" {
		raw = os.Getenv("GITHUB_TOKENS")
	}
	if raw == "" {
		raw = os.Getenv("GITHUB_TOKEN")
	}
	cfg.GitHubTokens = nil
	for tok := range strings.SplitSeq(raw, ",") {
		if trimmed := strings.TrimSpace(tok); trimmed != "" {
			cfg.GitHubTokens = append(cfg.GitHubTokens, trimmed)
		}
	}

	if input.GitHubRateLimit <= 0 {
		return fmt.Errorf("github-rate-limit must be greater than 0 (received %v)", input.GitHubRateLimit)
	}
	cfg.GitHubRateLimit = input.GitHubRateLimit
	cfg.GitHubBaseURL = input.GitHubBaseURL
	return nil
}

// resolveWorkspace makes the workspace directory absolute and ensures it exists.
func resolveWorkspace(cfg *Config, input *ConfigRawInput) error {
	dir := input.Workspace
	if dir == "" {
		dir = os.TempDir()
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace %q: %w", dir, err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace %q: %w", absDir, err)
	}
	cfg.WorkspaceDir = absDir

	if cfg.RegistryRoot != "" {
		root, err := filepath.Abs(cfg.RegistryRoot)
		if err != nil {
			return fmt.Errorf("failed to resolve registry root %q: %w", cfg.RegistryRoot, err)
		}
		cfg.RegistryRoot = root
	}
	return nil
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
}
