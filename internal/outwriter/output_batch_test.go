package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

func sampleOutcomes() []schema.BatchOutcome {
	update := func(id int64, pkg string) schema.PackageUpdate {
		return schema.PackageUpdate{ID: id, Ecosystem: schema.NPM, Package: pkg, OldVersion: "1.0.0", NewVersion: "2.0.0"}
	}
	return []schema.BatchOutcome{
		{Update: update(1, "left-pad"), Report: sampleReport()},
		{Update: update(2, "right-pad"), Err: fmt.Errorf("resolve: %w", schema.ErrReleaseCommitNotFound)},
		{Update: update(3, "up-pad"), Err: schema.ErrRateLimitExhausted, Skipped: true},
	}
}

func TestOutcomeStatus(t *testing.T) {
	outcomes := sampleOutcomes()
	assert.Equal(t, statusDone, outcomeStatus(outcomes[0]))
	assert.Equal(t, statusFailed, outcomeStatus(outcomes[1]))
	assert.Equal(t, statusPending, outcomeStatus(outcomes[2]))
}

func TestWriteBatch_Table(t *testing.T) {
	var buf bytes.Buffer
	cfg := &contract.Config{Width: 200, Detail: true, Workers: 4}
	require.NoError(t, WriteBatch(&buf, sampleOutcomes(), cfg, 2*time.Second))

	output := buf.String()
	assert.Contains(t, output, "npm/left-pad")
	assert.Contains(t, output, "1.0.0..2.0.0")
	assert.Contains(t, output, "Release")
	assert.Contains(t, output, "Processed 3 updates (1 done, 1 failed, 1 left pending) in 2s with 4 workers")
}

func TestWriteBatch_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, sampleOutcomes(), &contract.Config{Output: schema.JSONOut}, time.Second))

	var result []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 3)
	assert.Equal(t, statusDone, result[0]["status"])
	assert.NotNil(t, result[0]["stats"])
	assert.NotContains(t, result[0], "report")
	assert.Equal(t, statusFailed, result[1]["status"])
	assert.Contains(t, result[1]["error"], "release commit not found")
}

func TestWriteBatch_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, sampleOutcomes(), &contract.Config{Output: schema.CSVOut}, time.Second))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"1", "npm", "left-pad", "1.0.0", "2.0.0", statusDone, "1", "1", "1", "1", ""}, records[1])
	assert.Equal(t, statusPending, records[3][5])
}

func TestWriteBatch_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, nil, &contract.Config{Width: 120}, time.Second))
	assert.Contains(t, buf.String(), "Processed 0 updates")
}
