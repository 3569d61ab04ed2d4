package env

// Intelligent Processor environment variables (C5-C7).
var (
	ProcessorWorkers = RegisterIntVar(
		"AGENTMEM_PROCESSOR_WORKERS",
		4,
		"Number of facts processed concurrently per ingestion batch.",
		ComponentProcessor,
	)
	ProcessorTopK = RegisterIntVar(
		"AGENTMEM_PROCESSOR_TOP_K",
		5,
		"Number of similar memories retrieved per candidate fact.",
		ComponentProcessor,
	)
	ProcessorSimilarityThreshold = RegisterFloatVar(
		"AGENTMEM_PROCESSOR_SIMILARITY_THRESHOLD",
		0.75,
		"Minimum cosine similarity for a memory to be considered similar to a fact.",
		ComponentProcessor,
	)
	ProcessorMinConfidence = RegisterFloatVar(
		"AGENTMEM_PROCESSOR_MIN_CONFIDENCE",
		0.3,
		"Facts below this confidence are discarded by the extractor.",
		ComponentProcessor,
	)
	ProcessorMaxRetries = RegisterIntVar(
		"AGENTMEM_PROCESSOR_MAX_RETRIES",
		3,
		"Maximum LLM call retries for extraction/decision parsing failures.",
		ComponentProcessor,
	)
)

// Block manager / core memory compiler environment variables (C8).
var (
	BlockPersonaLimit = RegisterIntVar(
		"AGENTMEM_BLOCK_PERSONA_LIMIT",
		2000,
		"Default character limit for persona blocks.",
		ComponentBlocks,
	)
	BlockHumanLimit = RegisterIntVar(
		"AGENTMEM_BLOCK_HUMAN_LIMIT",
		2000,
		"Default character limit for human blocks.",
		ComponentBlocks,
	)
	BlockSystemLimit = RegisterIntVar(
		"AGENTMEM_BLOCK_SYSTEM_LIMIT",
		1000,
		"Default character limit for system blocks.",
		ComponentBlocks,
	)
	BlockRewriteThreshold = RegisterFloatVar(
		"AGENTMEM_BLOCK_REWRITE_THRESHOLD",
		0.9,
		"Fraction of the limit at which a block becomes eligible for auto-rewrite.",
		ComponentBlocks,
	)
	BlockTargetRetention = RegisterFloatVar(
		"AGENTMEM_BLOCK_TARGET_RETENTION",
		0.8,
		"Target fraction of the limit a rewrite cycle compacts a block to.",
		ComponentBlocks,
	)
	BlockMinQuality = RegisterFloatVar(
		"AGENTMEM_BLOCK_MIN_QUALITY",
		0.7,
		"Minimum acceptable rewrite quality score.",
		ComponentBlocks,
	)
	BlockRewriteMaxRetries = RegisterIntVar(
		"AGENTMEM_BLOCK_REWRITE_MAX_RETRIES",
		3,
		"Maximum rewrite-cycle attempts before refusing the write.",
		ComponentBlocks,
	)
)

// Retry policy environment variables.
var (
	RetryAttempts = RegisterIntVar(
		"AGENTMEM_RETRY_ATTEMPTS",
		3,
		"Maximum attempts for a retryable operation.",
		ComponentRetry,
	)
)
