package env_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kagent-dev/agentmem/pkg/env"
)

func TestStringVar_FallsBackToDefaultWhenUnset(t *testing.T) {
	v := env.RegisterStringVar("AGENTMEM_TEST_STRING_UNSET", "fallback", "test var", env.ComponentTesting)
	assert.Equal(t, "fallback", v.Get())
}

func TestStringVar_ReadsOverrideFromEnv(t *testing.T) {
	v := env.RegisterStringVar("AGENTMEM_TEST_STRING_SET", "fallback", "test var", env.ComponentTesting)
	t.Setenv("AGENTMEM_TEST_STRING_SET", "overridden")
	assert.Equal(t, "overridden", v.Get())
}

func TestBoolVar_InvalidOverrideFallsBackToDefault(t *testing.T) {
	v := env.RegisterBoolVar("AGENTMEM_TEST_BOOL", true, "test var", env.ComponentTesting)
	t.Setenv("AGENTMEM_TEST_BOOL", "not-a-bool")
	assert.True(t, v.Get())

	t.Setenv("AGENTMEM_TEST_BOOL", "false")
	assert.False(t, v.Get())
}

func TestIntVar_ReadsOverrideFromEnv(t *testing.T) {
	v := env.RegisterIntVar("AGENTMEM_TEST_INT", 10, "test var", env.ComponentTesting)
	t.Setenv("AGENTMEM_TEST_INT", "42")
	assert.Equal(t, 42, v.Get())
}

func TestFloatVar_ReadsOverrideFromEnv(t *testing.T) {
	v := env.RegisterFloatVar("AGENTMEM_TEST_FLOAT", 0.5, "test var", env.ComponentTesting)
	t.Setenv("AGENTMEM_TEST_FLOAT", "0.75")
	assert.InDelta(t, 0.75, v.Get(), 1e-9)
}

func TestDurationVar_ReadsOverrideFromEnv(t *testing.T) {
	v := env.RegisterDurationVar("AGENTMEM_TEST_DURATION", time.Second, "test var", env.ComponentTesting)
	t.Setenv("AGENTMEM_TEST_DURATION", "5s")
	assert.Equal(t, 5*time.Second, v.Get())
}

func TestVarDescriptions_IncludesRegisteredVar(t *testing.T) {
	env.RegisterStringVar("AGENTMEM_TEST_DESCRIBED", "x", "described for export", env.ComponentTesting)

	var found bool
	for _, v := range env.VarDescriptions() {
		if v.Name == "AGENTMEM_TEST_DESCRIBED" {
			found = true
			assert.Equal(t, "described for export", v.Description)
		}
	}
	assert.True(t, found)
}

func TestExportMarkdown_FiltersByComponent(t *testing.T) {
	env.RegisterStringVar("AGENTMEM_TEST_MARKDOWN", "x", "markdown test var", env.ComponentTesting)

	doc := env.ExportMarkdown(string(env.ComponentTesting))
	assert.Contains(t, doc, "AGENTMEM_TEST_MARKDOWN")

	docOther := env.ExportMarkdown(string(env.ComponentSandbox))
	assert.NotContains(t, docOther, "AGENTMEM_TEST_MARKDOWN")
}
