package env

// LLM provider environment variables (C5/C6 capability construction).
var (
	LLMProvider = RegisterStringVar(
		"AGENTMEM_LLM_PROVIDER",
		"anthropic",
		"LLM provider: anthropic, openai, gemini, bedrock, or ollama.",
		ComponentLLM,
	)
	LLMAPIKey = RegisterStringVar(
		"AGENTMEM_LLM_API_KEY",
		"",
		"API key for the configured LLM provider (unused by bedrock and ollama).",
		ComponentLLM,
	)
	LLMModel = RegisterStringVar(
		"AGENTMEM_LLM_MODEL",
		"",
		"Model identifier passed to the LLM provider. Empty selects the provider's default.",
		ComponentLLM,
	)
	LLMBaseURL = RegisterStringVar(
		"AGENTMEM_LLM_BASE_URL",
		"",
		"Override base URL for the LLM provider (ollama host, OpenAI-compatible gateway, ...).",
		ComponentLLM,
	)
	LLMRegion = RegisterStringVar(
		"AGENTMEM_LLM_REGION",
		"us-east-1",
		"AWS region used by the bedrock provider.",
		ComponentLLM,
	)
)

// Embedder provider environment variables.
var (
	EmbedderProvider = RegisterStringVar(
		"AGENTMEM_EMBEDDER_PROVIDER",
		"openai",
		"Embedder provider: openai, gemini, or fake.",
		ComponentEmbedder,
	)
	EmbedderAPIKey = RegisterStringVar(
		"AGENTMEM_EMBEDDER_API_KEY",
		"",
		"API key for the configured embedder provider.",
		ComponentEmbedder,
	)
	EmbedderModel = RegisterStringVar(
		"AGENTMEM_EMBEDDER_MODEL",
		"",
		"Model identifier passed to the embedder provider.",
		ComponentEmbedder,
	)
)

// Process entrypoint environment variables (cmd/agentmemd).
var (
	HTTPAddr = RegisterStringVar(
		"AGENTMEM_HTTP_ADDR",
		":8090",
		"Bind address for the health/metrics HTTP server.",
		ComponentStorage,
	)
	LogLevel = RegisterStringVar(
		"AGENTMEM_LOG_LEVEL",
		"info",
		"Logging level: debug, info, warn, or error.",
		ComponentStorage,
	)
)
