package schema

import "time"

// CacheStatus represents the status of the review verdict cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// ReportStatus represents the status of the report store.
type ReportStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TotalUpdates     int              `json:"total_updates"`
	PendingUpdates   int              `json:"pending_updates"`
	WithPhantomFiles int              `json:"with_phantom_files"`
	WithPhantomLines int              `json:"with_phantom_lines"`
	Failures         int              `json:"failures"`
	LastRecordTime   time.Time        `json:"last_record_time"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}
