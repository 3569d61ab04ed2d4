package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/blocks/template"
)

func TestRender_VariableSubstitution(t *testing.T) {
	out, err := template.Render("Hello, {{name}}!", map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", out)
}

func TestRender_PipeFilters(t *testing.T) {
	out, err := template.Render("{{name|upper|trim}}", map[string]interface{}{"name": "  ada  "})
	require.NoError(t, err)
	assert.Equal(t, "ADA", out)
}

func TestRender_UndefinedVariableFails(t *testing.T) {
	_, err := template.Render("{{missing}}", map[string]interface{}{})
	assert.Error(t, err)
}

func TestRender_IfConditional(t *testing.T) {
	out, err := template.Render("{% if show %}visible{% endif %}", map[string]interface{}{"show": true})
	require.NoError(t, err)
	assert.Equal(t, "visible", out)

	out, err = template.Render("{% if show %}visible{% endif %}", map[string]interface{}{"show": false})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRender_ForLoopMultiLineBody(t *testing.T) {
	tmpl := "{% for item in items %}\n- {{item}}\n{% endfor %}"
	out, err := template.Render(tmpl, map[string]interface{}{"items": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "\n- a\n\n- b\n", out)
}

func TestRender_NestedIfInsideFor(t *testing.T) {
	tmpl := "{% for item in items %}{% if flag %}[{{item}}]{% endif %}{% endfor %}"
	out, err := template.Render(tmpl, map[string]interface{}{"items": []string{"a", "b"}, "flag": true})
	require.NoError(t, err)
	assert.Equal(t, "[a][b]", out)
}

func TestRender_CapitalizeAndLengthFilters(t *testing.T) {
	out, err := template.Render("{{name|capitalize}} ({{name|length}})", map[string]interface{}{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada (3)", out)
}
