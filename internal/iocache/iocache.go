// Package iocache persists review verdicts and analysis reports.
package iocache

import (
	"sync"

	"github.com/huangsam/depdive/internal/contract"
)

// StoreManager holds the review cache and the report store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	reviews      contract.CacheStore
	reports      contract.ReportStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetReviewCache returns the review verdict CacheStore, or nil when caching is disabled.
func (mgr *StoreManager) GetReviewCache() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.reviews
}

// GetReportStore returns the ReportStore, or nil when reports are disabled.
func (mgr *StoreManager) GetReportStore() contract.ReportStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.reports
}
