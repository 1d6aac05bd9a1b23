package iocache

import (
	"github.com/stretchr/testify/mock"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetReviewCache implements the StoreManager interface.
func (m *MockStoreManager) GetReviewCache() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetReportStore implements the StoreManager interface.
func (m *MockStoreManager) GetReportStore() contract.ReportStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ReportStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockReportStore is a mock implementation of ReportStore for testing.
type MockReportStore struct {
	mock.Mock
}

var _ contract.ReportStore = &MockReportStore{} // Compile-time check

// AddPackageUpdate implements the ReportStore interface.
func (m *MockReportStore) AddPackageUpdate(update schema.PackageUpdate) (int64, error) {
	args := m.Called(update)
	return args.Get(0).(int64), args.Error(1)
}

// PendingUpdates implements the ReportStore interface.
func (m *MockReportStore) PendingUpdates(limit int) ([]schema.PackageUpdate, error) {
	args := m.Called(limit)
	updates, _ := args.Get(0).([]schema.PackageUpdate)
	return updates, args.Error(1)
}

// RecordReport implements the ReportStore interface.
func (m *MockReportStore) RecordReport(updateID int64, report *schema.AnalysisReport) error {
	args := m.Called(updateID, report)
	return args.Error(0)
}

// RecordFailure implements the ReportStore interface.
func (m *MockReportStore) RecordFailure(updateID int64, reason string) error {
	args := m.Called(updateID, reason)
	return args.Error(0)
}

// GetAllPhantomLines implements the ReportStore interface.
func (m *MockReportStore) GetAllPhantomLines() ([]schema.PhantomLineRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.PhantomLineRecord)
	return records, args.Error(1)
}

// GetAllLineAttributions implements the ReportStore interface.
func (m *MockReportStore) GetAllLineAttributions() ([]schema.LineAttributionRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.LineAttributionRecord)
	return records, args.Error(1)
}

// GetStatus implements the ReportStore interface.
func (m *MockReportStore) GetStatus() (schema.ReportStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ReportStatus), args.Error(1)
}

// Close implements the ReportStore interface.
func (m *MockReportStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
