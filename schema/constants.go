package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and reports.
	DatabaseBackend string

	// Ecosystem names a package registry whose releases can be reconciled.
	Ecosystem string

	// ReviewCategory is the verdict category for a single commit.
	ReviewCategory string

	// LogFormat represents the structured log output format.
	LogFormat string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All ecosystems supported.
const (
	NPM      Ecosystem = "npm"
	Cargo    Ecosystem = "cargo"
	PyPI     Ecosystem = "pypi"
	RubyGems Ecosystem = "rubygems"
	Composer Ecosystem = "composer"
)

// Review categories assigned to commits. Every category except Unreviewed counts as reviewed.
const (
	GitHubReview       ReviewCategory = "github_review"
	DifferentMerger    ReviewCategory = "different_merger"
	DifferentCommitter ReviewCategory = "different_committer"
	SCMReview          ReviewCategory = "scm_review"
	ProwReview         ReviewCategory = "prow_review"
	Unreviewed         ReviewCategory = "none"
)

// Log formats supported.
const (
	TextLog LogFormat = "text" // default
	JSONLog LogFormat = "json"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidEcosystems lists all valid ecosystems.
var ValidEcosystems = map[Ecosystem]struct{}{
	NPM:      {},
	Cargo:    {},
	PyPI:     {},
	RubyGems: {},
	Composer: {},
}

// ValidLogFormats lists all valid log formats.
var ValidLogFormats = map[LogFormat]struct{}{
	TextLog: {},
	JSONLog: {},
}

// Reviewed reports whether the category counts as a completed review.
func (c ReviewCategory) Reviewed() bool {
	switch c {
	case GitHubReview, DifferentMerger, DifferentCommitter, SCMReview, ProwReview:
		return true
	default:
		return false
	}
}
