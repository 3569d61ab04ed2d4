package storage

import (
	"database/sql"
	"sort"
	"sync"
	"time"
)

// PoolPreset configures the database/sql connection pool. §4.1 defines three
// named presets; callers may also hand-tune a PoolPreset directly.
type PoolPreset struct {
	Name               string
	MinOpen            int
	MaxOpen            int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

// PresetDevelopment: min=1,max=5.
func PresetDevelopment() PoolPreset {
	return PoolPreset{Name: "development", MinOpen: 1, MaxOpen: 5, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 10 * time.Minute, SlowQueryThreshold: 100 * time.Millisecond}
}

// PresetProduction: min=5,max=20.
func PresetProduction() PoolPreset {
	return PoolPreset{Name: "production", MinOpen: 5, MaxOpen: 20, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 10 * time.Minute, SlowQueryThreshold: 100 * time.Millisecond}
}

// PresetHighThroughput: min=10,max=100.
func PresetHighThroughput() PoolPreset {
	return PoolPreset{Name: "high-throughput", MinOpen: 10, MaxOpen: 100, ConnMaxLifetime: 30 * time.Minute, ConnMaxIdleTime: 5 * time.Minute, SlowQueryThreshold: 100 * time.Millisecond}
}

// PresetByName resolves the §6 configuration enum {dev,prod,hiperf}.
func PresetByName(name string) PoolPreset {
	switch name {
	case "prod":
		return PresetProduction()
	case "hiperf":
		return PresetHighThroughput()
	default:
		return PresetDevelopment()
	}
}

// Apply configures a *sql.DB's pool limits. MinOpen is not a direct
// database/sql concept; it is approximated by letting up to MinOpen idle
// connections stay open via SetMaxIdleConns. No connections are opened in
// advance.
func (p PoolPreset) Apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpen)
	idle := p.MinOpen
	if idle < 1 {
		idle = 1
	}
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)
	db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
}

// PoolStats is a point-in-time health snapshot (§4.1).
type PoolStats struct {
	InUse       int
	Idle        int
	WaitCount   int64
	WaitP50     time.Duration
	WaitP95     time.Duration
	Timeouts    int64
	Errors      int64
}

// PoolMonitor samples sql.DBStats and records acquisition wait latencies so
// WaitP50/WaitP95 can be derived. It is independent of the retry policy in
// pkg/retry, which classifies errors rather than measuring latency.
type PoolMonitor struct {
	mu       sync.Mutex
	waits    []time.Duration
	timeouts int64
	errors   int64
}

func NewPoolMonitor() *PoolMonitor { return &PoolMonitor{} }

// RecordAcquire records how long a connection acquisition took.
func (m *PoolMonitor) RecordAcquire(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits = append(m.waits, d)
	if len(m.waits) > 1000 {
		m.waits = m.waits[len(m.waits)-1000:]
	}
}

// RecordTimeout records a pool-acquisition timeout (PoolTimeout, §5).
func (m *PoolMonitor) RecordTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

// RecordError records a transient backend error observed during acquisition.
func (m *PoolMonitor) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// Snapshot merges database/sql stats with recorded wait-latency percentiles.
func (m *PoolMonitor) Snapshot(dbStats sql.DBStats) PoolStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := append([]time.Duration(nil), m.waits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return PoolStats{
		InUse:     dbStats.InUse,
		Idle:      dbStats.Idle,
		WaitCount: dbStats.WaitCount,
		WaitP50:   percentile(sorted, 0.50),
		WaitP95:   percentile(sorted, 0.95),
		Timeouts:  m.timeouts,
		Errors:    m.errors,
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
