package storage_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kagent-dev/agentmem/internal/storage"
)

func TestPresetByName(t *testing.T) {
	assert.Equal(t, storage.PresetProduction(), storage.PresetByName("prod"))
	assert.Equal(t, storage.PresetHighThroughput(), storage.PresetByName("hiperf"))
	assert.Equal(t, storage.PresetDevelopment(), storage.PresetByName("dev"))
	assert.Equal(t, storage.PresetDevelopment(), storage.PresetByName("unknown"))
}

func TestPoolMonitor_SnapshotComputesPercentiles(t *testing.T) {
	mon := storage.NewPoolMonitor()
	for _, d := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond} {
		mon.RecordAcquire(d)
	}
	mon.RecordTimeout()
	mon.RecordError()

	snap := mon.Snapshot(sql.DBStats{InUse: 2, Idle: 3})
	assert.Equal(t, 2, snap.InUse)
	assert.Equal(t, 3, snap.Idle)
	assert.EqualValues(t, 1, snap.Timeouts)
	assert.EqualValues(t, 1, snap.Errors)
	assert.Greater(t, snap.WaitP95, time.Duration(0))
}

func TestQueryStats_ObserveTracksSlowQueries(t *testing.T) {
	qs := storage.NewQueryStats(50 * time.Millisecond)
	qs.Observe("repo.Read", 10*time.Millisecond)
	qs.Observe("repo.Read", 80*time.Millisecond)

	summary := qs.Summary()
	require := assert.New(t)
	require.Len(summary, 1)
	require.Equal("repo.Read", summary[0].Label)
	require.Equal(2, summary[0].Executions)

	slow := qs.SlowQueries()
	require.Len(slow, 1)
	require.Equal(80*time.Millisecond, slow[0].Duration)
}

func TestTrack_RecordsDurationAndPassesResultThrough(t *testing.T) {
	qs := storage.NewQueryStats(time.Millisecond)
	result, err := storage.Track(qs, "repo.List", func() (int, error) {
		time.Sleep(2 * time.Millisecond)
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Len(t, qs.Summary(), 1)
}
