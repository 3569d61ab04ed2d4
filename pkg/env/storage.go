package env

import "time"

// Storage environment variables (C1).
var (
	DatabaseURL = RegisterStringVar(
		"AGENTMEM_DATABASE_URL",
		"",
		"Postgres connection URL. Empty selects the SQLite fallback backend.",
		ComponentStorage,
	)
	PoolPreset = RegisterStringVar(
		"AGENTMEM_POOL_PRESET",
		"dev",
		"Connection pool preset: dev, prod, or hiperf.",
		ComponentStorage,
	)
	SlowQueryMillis = RegisterIntVar(
		"AGENTMEM_SLOW_QUERY_MS",
		100,
		"Threshold in milliseconds above which a query is recorded as slow.",
		ComponentStorage,
	)
	BatchSize = RegisterIntVar(
		"AGENTMEM_BATCH_SIZE",
		100,
		"Number of rows per chunk in batch insert operations.",
		ComponentStorage,
	)
	PoolAcquireTimeout = RegisterDurationVar(
		"AGENTMEM_POOL_ACQUIRE_TIMEOUT",
		5*time.Second,
		"Wait timeout for acquiring a connection from the pool.",
		ComponentStorage,
	)
)
