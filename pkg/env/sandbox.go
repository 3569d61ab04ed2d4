package env

import "time"

// Tool sandbox environment variables (C9).
var (
	SandboxDefaultTimeout = RegisterDurationVar(
		"AGENTMEM_SANDBOX_DEFAULT_TIMEOUT",
		30*time.Second,
		"Default wall-clock timeout for sandboxed tool execution.",
		ComponentSandbox,
	)
	SandboxMaxStdout = RegisterIntVar(
		"AGENTMEM_SANDBOX_MAX_STDOUT_BYTES",
		1<<20,
		"Maximum captured stdout size in bytes before truncation.",
		ComponentSandbox,
	)
	SandboxMaxStderr = RegisterIntVar(
		"AGENTMEM_SANDBOX_MAX_STDERR_BYTES",
		1<<20,
		"Maximum captured stderr size in bytes before truncation.",
		ComponentSandbox,
	)
	SandboxEnableNetwork = RegisterBoolVar(
		"AGENTMEM_SANDBOX_ENABLE_NETWORK",
		false,
		"Whether sandboxed processes may access the network (host-enforced).",
		ComponentSandbox,
	)
)
