package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/huangsam/depdive/schema"
)

// Review label constants.
const (
	ReviewedValue   = "Reviewed"
	UnreviewedValue = "Unreviewed"
	PhantomValue    = "Phantom"
)

// Color variables for console output.
var (
	ReviewedColor   = color.New(color.FgGreen)            // ReviewedColor marks commits that passed a review gate.
	UnreviewedColor = color.New(color.FgRed, color.Bold)  // UnreviewedColor marks commits with no review evidence.
	PhantomColor    = color.New(color.FgMagenta, color.Bold)
	NoticeColor     = color.New(color.FgCyan)
)

var (
	logger     = logrus.New()
	loggerOnce sync.Once
)

// Logger returns the process-wide structured logger.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
	})
	return logger
}

// ConfigureLogging applies the log level and format chosen by the user.
func ConfigureLogging(level string, format schema.LogFormat) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l := Logger()
	l.SetLevel(lvl)
	switch format {
	case schema.JSONLog:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return nil
}

// GetPlainLabel returns the plain text review label for a category.
func GetPlainLabel(category schema.ReviewCategory) string {
	if category.Reviewed() {
		return ReviewedValue
	}
	return UnreviewedValue
}

// GetColorLabel returns a colored review label for console output (table).
func GetColorLabel(category schema.ReviewCategory) string {
	text := GetPlainLabel(category)
	if text == ReviewedValue {
		return ReviewedColor.Sprint(text)
	}
	return UnreviewedColor.Sprint(text)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided path.
// It defaults to os.Stdout if the path is empty.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", filePath, err)
	}
	return file, nil
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	Logger().WithError(err).Error(msg)
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	Logger().WithError(err).Warn(msg)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the review verdict cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".depdive_cache.db"
	}
	return filepath.Join(homeDir, ".depdive_cache.db")
}

// GetReportDBFilePath returns the path to the SQLite DB file for report storage.
func GetReportDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".depdive_reports.db"
	}
	return filepath.Join(homeDir, ".depdive_reports.db")
}

// NormalizeSubdir strips the "./" prefix and any trailing slash from a package directory.
// The repository root normalizes to the empty string.
func NormalizeSubdir(dir string) string {
	dir = strings.TrimSpace(dir)
	for strings.HasPrefix(dir, "./") {
		dir = strings.TrimPrefix(dir, "./")
	}
	dir = strings.TrimRight(dir, "/")
	if dir == "." {
		return ""
	}
	return dir
}

// JoinRepoPath places a package-relative path under the package directory.
func JoinRepoPath(subdir, path string) string {
	subdir = NormalizeSubdir(subdir)
	if subdir == "" {
		return path
	}
	return subdir + "/" + path
}

// ShortHash abbreviates a commit hash for display.
func ShortHash(hash string) string {
	if len(hash) > 10 {
		return hash[:10]
	}
	return hash
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
