package blocks

import (
	"context"
	"time"

	"github.com/kagent-dev/agentmem/internal/blocks/template"
	"github.com/kagent-dev/agentmem/internal/storage"
)

// CompileStats accompanies a compiled core-memory prompt.
type CompileStats struct {
	BlocksUsed         int
	TotalCharacters    int
	CompilationTimeMS  int64
}

// defaultCoreMemoryTemplate renders Persona -> Human -> System sections, in
// that order, skipping any section with no blocks.
const defaultCoreMemoryTemplate = `{% if has_persona %}## Persona
{% for block in persona %}{{block}}
{% endfor %}
{% endif %}{% if has_human %}## Human
{% for block in human %}{{block}}
{% endfor %}
{% endif %}{% if has_system %}## System
{% for block in system %}{{block}}
{% endfor %}
{% endif %}`

// Compiler assembles an agent's associated blocks into a single prompt
// string, grouped by type. It is pure with respect to the database snapshot
// it reads: the same block set always renders the same output.
type Compiler struct {
	repo *storage.BlockRepository
}

func NewCompiler(repo *storage.BlockRepository) *Compiler {
	return &Compiler{repo: repo}
}

// Compile fetches every block associated with agentID, groups it by type,
// and renders it with customTemplate if non-empty, or the default
// Persona/Human/System template otherwise.
func (c *Compiler) Compile(ctx context.Context, orgID, agentID, customTemplate string) (string, CompileStats, error) {
	start := time.Now()

	allBlocks, err := c.repo.ListByAgent(ctx, orgID, agentID)
	if err != nil {
		return "", CompileStats{}, err
	}

	grouped := map[storage.BlockType][]string{}
	for _, b := range allBlocks {
		grouped[b.BlockType] = append(grouped[b.BlockType], b.Value)
	}

	persona := grouped[storage.BlockTypePersona]
	human := grouped[storage.BlockTypeHuman]
	system := grouped[storage.BlockTypeSystem]

	ctxVars := map[string]interface{}{
		"persona": persona, "human": human, "system": system,
		"has_persona": len(persona) > 0, "has_human": len(human) > 0, "has_system": len(system) > 0,
	}

	tmpl := customTemplate
	if tmpl == "" {
		tmpl = defaultCoreMemoryTemplate
	}

	rendered, err := template.Render(tmpl, ctxVars)
	if err != nil {
		return "", CompileStats{}, err
	}

	stats := CompileStats{
		BlocksUsed:        len(allBlocks),
		TotalCharacters:   len(rendered),
		CompilationTimeMS: time.Since(start).Milliseconds(),
	}
	return rendered, stats, nil
}
