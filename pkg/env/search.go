package env

import "time"

// Vector index environment variables (C2).
var (
	VectorDimension = RegisterIntVar(
		"AGENTMEM_VECTOR_DIMENSION",
		1536,
		"Fixed dimension of memory content embeddings.",
		ComponentVector,
	)
	VectorDefaultThreshold = RegisterFloatVar(
		"AGENTMEM_VECTOR_DEFAULT_THRESHOLD",
		0.0,
		"Default minimum cosine similarity for vector search results.",
		ComponentVector,
	)
)

// Full-text index environment variables (C3).
var (
	FullTextLanguage = RegisterStringVar(
		"AGENTMEM_FULLTEXT_LANGUAGE",
		"english",
		"Tokenization language: english or chinese.",
		ComponentFullText,
	)
)

// Hybrid search environment variables (C4).
var (
	HybridVectorWeight = RegisterFloatVar(
		"AGENTMEM_HYBRID_VECTOR_WEIGHT",
		0.7,
		"Weight given to vector search rank in RRF fusion.",
		ComponentHybrid,
	)
	HybridFullTextWeight = RegisterFloatVar(
		"AGENTMEM_HYBRID_FULLTEXT_WEIGHT",
		0.3,
		"Weight given to full-text search rank in RRF fusion.",
		ComponentHybrid,
	)
	HybridRRFConstant = RegisterIntVar(
		"AGENTMEM_HYBRID_RRF_K",
		60,
		"RRF rank-smoothing constant (k_const).",
		ComponentHybrid,
	)
	HybridCacheEnabled = RegisterBoolVar(
		"AGENTMEM_HYBRID_CACHE_ENABLED",
		false,
		"Enables the query-fingerprint result cache.",
		ComponentHybrid,
	)
	HybridCacheTTL = RegisterDurationVar(
		"AGENTMEM_HYBRID_CACHE_TTL",
		30*time.Second,
		"TTL for cached hybrid search results.",
		ComponentHybrid,
	)
)
