package iocache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// Table names for report tracking.
const (
	packageUpdateTable   = "depdive_package_update"
	phantomFileTable     = "depdive_phantom_file"
	noPhantomFileTable   = "depdive_no_phantom_file"
	phantomLineTable     = "depdive_phantom_line"
	noPhantomLineTable   = "depdive_no_phantom_line"
	commitReviewTable    = "depdive_commit_review"
	lineAttributionTable = "depdive_line_attribution"
	failureTable         = "depdive_failure"
)

// reportTables lists every report table, parents last so drops succeed in order.
var reportTables = []string{
	failureTable,
	lineAttributionTable,
	commitReviewTable,
	noPhantomLineTable,
	phantomLineTable,
	noPhantomFileTable,
	phantomFileTable,
	packageUpdateTable,
}

// resultTables hold the outcome of one analysis and are rewritten on every record.
var resultTables = []string{
	phantomFileTable,
	noPhantomFileTable,
	phantomLineTable,
	noPhantomLineTable,
	commitReviewTable,
	lineAttributionTable,
	failureTable,
}

// ReportStoreImpl implements the ReportStore interface.
type ReportStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
	now     func() time.Time
}

var _ contract.ReportStore = &ReportStoreImpl{} // Compile-time check

// NewReportStore creates a new ReportStore with the specified backend.
// The schema is brought to the latest migration before the store is returned.
func NewReportStore(backend schema.DatabaseBackend, connStr string) (contract.ReportStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &ReportStoreImpl{backend: backend, now: time.Now}, nil
	}

	if _, err := MigrateReports(backend, connStr, -1); err != nil {
		return nil, fmt.Errorf("failed to create report tables: %w", err)
	}

	db, err := openDB(backend, connStr, GetReportDBFilePath(), false)
	if err != nil {
		return nil, err
	}

	return &ReportStoreImpl{
		db:      db,
		backend: backend,
		connStr: connStr,
		now:     time.Now,
	}, nil
}

func (rs *ReportStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

func (rs *ReportStoreImpl) table(name string) string {
	return quoteTableName(name, rs.backend)
}

// AddPackageUpdate registers an update and returns its ID. Registering the same
// ecosystem, package and version pair again returns the existing ID.
func (rs *ReportStoreImpl) AddPackageUpdate(update schema.PackageUpdate) (int64, error) {
	if rs.disabled() {
		return 0, nil
	}

	lookup := rebind(fmt.Sprintf(`SELECT id FROM %s WHERE ecosystem = ? AND package = ? AND old_version = ? AND new_version = ?`,
		rs.table(packageUpdateTable)), rs.backend)
	var id int64
	err := rs.db.QueryRow(lookup, string(update.Ecosystem), update.Package, update.OldVersion, update.NewVersion).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up package update: %w", err)
	}

	args := []any{
		string(update.Ecosystem), update.Package, update.RepositoryURL, update.Directory,
		update.OldVersion, update.NewVersion, formatTime(rs.now(), rs.backend),
	}
	insert := fmt.Sprintf(`INSERT INTO %s (ecosystem, package, repository_url, directory, old_version, new_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, rs.table(packageUpdateTable))

	switch rs.backend {
	case schema.PostgreSQLBackend:
		err = rs.db.QueryRow(rebind(insert, rs.backend)+" RETURNING id", args...).Scan(&id)
	default: // SQLite and MySQL
		var result sql.Result
		result, err = rs.db.Exec(insert, args...)
		if err == nil {
			id, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert package update: %w", err)
	}
	return id, nil
}

// PendingUpdates returns updates with neither a recorded report nor a failure, oldest first.
// A limit of zero or less returns every pending update.
func (rs *ReportStoreImpl) PendingUpdates(limit int) ([]schema.PackageUpdate, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, ecosystem, package, repository_url, directory, old_version, new_version
		FROM %s u WHERE %s ORDER BY id`, rs.table(packageUpdateTable), rs.pendingCondition())
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rs.db.Query(rebind(query, rs.backend), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending updates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.PackageUpdate
	for rows.Next() {
		var u schema.PackageUpdate
		var eco string
		if err := rows.Scan(&u.ID, &eco, &u.Package, &u.RepositoryURL, &u.Directory, &u.OldVersion, &u.NewVersion); err != nil {
			return nil, fmt.Errorf("failed to scan package update: %w", err)
		}
		u.Ecosystem = schema.Ecosystem(eco)
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending updates: %w", err)
	}
	return results, nil
}

// pendingCondition filters the update alias u down to rows with no outcome.
func (rs *ReportStoreImpl) pendingCondition() string {
	return fmt.Sprintf(`NOT EXISTS (SELECT 1 FROM %s pf WHERE pf.update_id = u.id)
		AND NOT EXISTS (SELECT 1 FROM %s npf WHERE npf.update_id = u.id)
		AND NOT EXISTS (SELECT 1 FROM %s f WHERE f.update_id = u.id)`,
		rs.table(phantomFileTable), rs.table(noPhantomFileTable), rs.table(failureTable))
}

// RecordReport replaces every stored result of updateID with report in one transaction.
// An update without phantom files or lines gets a marker row so it is no longer pending.
func (rs *ReportStoreImpl) RecordReport(updateID int64, report *schema.AnalysisReport) error {
	if rs.disabled() {
		return nil
	}
	if report == nil {
		return errors.New("cannot record a nil report")
	}

	now := rs.now()
	at := formatTime(now, rs.backend)

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := rs.clearResults(tx, updateID); err != nil {
		return err
	}

	exec := func(table, columns, values string, args ...any) error {
		query := rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, rs.table(table), columns, values), rs.backend)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil
	}

	if len(report.Phantom.Files) == 0 {
		if err := exec(noPhantomFileTable, "update_id, recorded_at", "?, ?", updateID, at); err != nil {
			return err
		}
	}
	for _, path := range report.Phantom.Files {
		if err := exec(phantomFileTable, "update_id, file_path, recorded_at", "?, ?, ?", updateID, path, at); err != nil {
			return err
		}
	}

	lines := report.PhantomLineRecords(updateID, now)
	if len(lines) == 0 {
		if err := exec(noPhantomLineTable, "update_id, recorded_at", "?, ?", updateID, at); err != nil {
			return err
		}
	}
	for _, l := range lines {
		if err := exec(phantomLineTable, "update_id, file_path, line, additions, deletions, recorded_at", "?, ?, ?, ?, ?, ?",
			updateID, l.FilePath, l.Line, l.Additions, l.Deletions, at); err != nil {
			return err
		}
	}

	for _, v := range report.SortedVerdicts() {
		metadata, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal review metadata: %w", err)
		}
		if err := exec(commitReviewTable, "update_id, commit_sha, category, metadata, recorded_at", "?, ?, ?, ?, ?",
			updateID, v.Commit, string(v.Category), string(metadata), at); err != nil {
			return err
		}
	}

	for _, a := range report.LineAttributionRecords(updateID, now) {
		if err := exec(lineAttributionTable, "update_id, file_path, commit_sha, change_kind, line, category, recorded_at", "?, ?, ?, ?, ?, ?, ?",
			updateID, a.FilePath, a.CommitSHA, a.Change, a.Line, a.Category, at); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// RecordFailure replaces every stored result of updateID with a failure reason.
func (rs *ReportStoreImpl) RecordFailure(updateID int64, reason string) error {
	if rs.disabled() {
		return nil
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := rs.clearResults(tx, updateID); err != nil {
		return err
	}
	query := rebind(fmt.Sprintf(`INSERT INTO %s (update_id, reason, recorded_at) VALUES (?, ?, ?)`, rs.table(failureTable)), rs.backend)
	if _, err := tx.Exec(query, updateID, reason, formatTime(rs.now(), rs.backend)); err != nil {
		return fmt.Errorf("failed to insert failure: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failure: %w", err)
	}
	return nil
}

func (rs *ReportStoreImpl) clearResults(tx *sql.Tx, updateID int64) error {
	for _, table := range resultTables {
		query := rebind(fmt.Sprintf(`DELETE FROM %s WHERE update_id = ?`, rs.table(table)), rs.backend)
		if _, err := tx.Exec(query, updateID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// GetAllPhantomLines retrieves all phantom lines from the store.
func (rs *ReportStoreImpl) GetAllPhantomLines() ([]schema.PhantomLineRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT update_id, file_path, line, additions, deletions, recorded_at FROM %s ORDER BY update_id, id`,
		rs.table(phantomLineTable))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query phantom lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.PhantomLineRecord
	for rows.Next() {
		var r schema.PhantomLineRecord
		var recordedAt any
		if err := rows.Scan(&r.UpdateID, &r.FilePath, &r.Line, &r.Additions, &r.Deletions, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan phantom line: %w", err)
		}
		if r.RecordedAt, err = parseStoredTime(recordedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phantom lines: %w", err)
	}
	return results, nil
}

// GetAllLineAttributions retrieves all line attributions from the store.
func (rs *ReportStoreImpl) GetAllLineAttributions() ([]schema.LineAttributionRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT update_id, file_path, commit_sha, change_kind, line, category, recorded_at FROM %s ORDER BY update_id, id`,
		rs.table(lineAttributionTable))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query line attributions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.LineAttributionRecord
	for rows.Next() {
		var r schema.LineAttributionRecord
		var recordedAt any
		if err := rows.Scan(&r.UpdateID, &r.FilePath, &r.CommitSHA, &r.Change, &r.Line, &r.Category, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line attribution: %w", err)
		}
		if r.RecordedAt, err = parseStoredTime(recordedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line attributions: %w", err)
	}
	return results, nil
}

// GetStatus returns status information about the report store.
func (rs *ReportStoreImpl) GetStatus() (schema.ReportStatus, error) {
	status := schema.ReportStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.disabled() {
		return status, nil
	}

	counts := []struct {
		dest  *int
		query string
	}{
		{&status.TotalUpdates, fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(packageUpdateTable))},
		{&status.PendingUpdates, fmt.Sprintf("SELECT COUNT(*) FROM %s u WHERE %s", rs.table(packageUpdateTable), rs.pendingCondition())},
		{&status.WithPhantomFiles, fmt.Sprintf("SELECT COUNT(DISTINCT update_id) FROM %s", rs.table(phantomFileTable))},
		{&status.WithPhantomLines, fmt.Sprintf("SELECT COUNT(DISTINCT update_id) FROM %s", rs.table(phantomLineTable))},
		{&status.Failures, fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(failureTable))},
	}
	for _, c := range counts {
		if err := rs.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return status, fmt.Errorf("failed to get report counts: %w", err)
		}
	}

	// Every recorded outcome lands in exactly one of these tables
	for _, table := range []string{phantomFileTable, noPhantomFileTable, failureTable} {
		var raw any
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT MAX(recorded_at) FROM %s", rs.table(table))).Scan(&raw); err != nil {
			return status, fmt.Errorf("failed to get last record time: %w", err)
		}
		t, err := parseStoredTime(raw)
		if err != nil {
			return status, err
		}
		if t.After(status.LastRecordTime) {
			status.LastRecordTime = t
		}
	}

	for _, table := range reportTables {
		var count int64
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// Close closes the underlying connection.
func (rs *ReportStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}
