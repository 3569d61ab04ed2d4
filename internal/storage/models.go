// Package storage implements the Memory Core's multi-tenant relational
// persistence layer (C1): schema, repositories, migrations, connection pool,
// transactions, and batch operations. Every tenant-scoped operation
// enforces I1 (organization_id filtering) at the repository boundary.
package storage

import (
	"time"
)

// Role is a User's authorization role within an organization.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReadOnly Role = "readonly"
)

// MessageRole identifies the speaker of a Message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
	MessageRoleTool      MessageRole = "tool"
)

// MemoryType classifies a Memory row per §3.
type MemoryType string

const (
	MemoryTypeEpisodic   MemoryType = "episodic"
	MemoryTypeSemantic   MemoryType = "semantic"
	MemoryTypeProcedural MemoryType = "procedural"
	MemoryTypeWorking    MemoryType = "working"
	MemoryTypeCore       MemoryType = "core"
	MemoryTypeResource   MemoryType = "resource"
	MemoryTypeKnowledge  MemoryType = "knowledge"
	MemoryTypeContextual MemoryType = "contextual"
)

// BlockType classifies a Block's role in the compiled core-memory prompt.
type BlockType string

const (
	BlockTypePersona BlockType = "persona"
	BlockTypeHuman   BlockType = "human"
	BlockTypeSystem  BlockType = "system"
)

// ToolSourceType identifies the interpreter a Tool's source_code runs under.
type ToolSourceType string

const (
	ToolSourceBash       ToolSourceType = "bash"
	ToolSourcePython     ToolSourceType = "python"
	ToolSourceJavaScript ToolSourceType = "javascript"
)

// Organization is the root of tenancy.
type Organization struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool `gorm:"index;not null;default:false"`
}

// User belongs to an Organization. Email is unique within the org.
type User struct {
	ID             string `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string `gorm:"index;type:varchar(64);not null;uniqueIndex:idx_users_org_email"`
	Email          string `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_org_email"`
	PasswordHash   string `gorm:"type:varchar(255);not null"`
	Role           Role   `gorm:"type:varchar(16);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsDeleted      bool `gorm:"index;not null;default:false"`
}

// TableName pins the composite-unique-index table name for the org+email migration.
func (User) TableName() string { return "users" }

// Agent is an AI assistant scoped to an organization.
type Agent struct {
	ID               string `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID   string `gorm:"index;type:varchar(64);not null"`
	Name             string `gorm:"type:varchar(255);not null"`
	SystemPrompt     string `gorm:"type:text"`
	LLMConfig        string `gorm:"type:jsonb"`
	EmbeddingConfig  string `gorm:"type:jsonb"`
	ToolRules        string `gorm:"type:jsonb"`
	CreatedByID      string `gorm:"type:varchar(64)"`
	LastUpdatedByID  string `gorm:"type:varchar(64)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	IsDeleted        bool `gorm:"index;not null;default:false"`
}

// Message is an immutable, append-only conversational turn.
type Message struct {
	ID             string `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string `gorm:"index;type:varchar(64);not null"`
	AgentID        string `gorm:"index:idx_messages_agent_created;type:varchar(64);not null"`
	UserID         *string `gorm:"type:varchar(64)"`
	Role           MessageRole `gorm:"type:varchar(16);not null"`
	Content        string      `gorm:"type:text;not null"`
	CreatedAt      time.Time   `gorm:"index:idx_messages_agent_created"`
	IsDeleted      bool        `gorm:"index;not null;default:false"`
}

// Memory is a durable, retrievable piece of extracted or directly-ingested content.
//
// ContentVector is stored as opaque bytes at the storage-layer model level;
// backend-specific repositories (postgres/pgvector, sqlite) translate to and
// from their native vector representation. This keeps the `storage` package
// free of a hard pgvector dependency, so the SQLite backend needs none.
type Memory struct {
	ID             string  `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string  `gorm:"index;type:varchar(64);not null"`
	AgentID        *string `gorm:"index;type:varchar(64)"`
	UserID         *string `gorm:"index;type:varchar(64)"`
	Content        string  `gorm:"type:text;not null"`
	ContentVector  []byte  `gorm:"type:bytea"`
	MemoryType     MemoryType `gorm:"type:varchar(16);not null"`
	Importance     float64    `gorm:"not null;default:0.5"`
	AccessCount    int64      `gorm:"not null;default:0"`
	LastAccessedAt *time.Time
	Tags           []string `gorm:"serializer:json;type:jsonb"`
	Metadata       string   `gorm:"type:jsonb"`
	SearchVector   string   `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsDeleted      bool `gorm:"index;not null;default:false"`
}

// Block is a bounded, typed fragment of an agent's always-in-context working memory.
type Block struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string    `gorm:"index;type:varchar(64);not null"`
	UserID         string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_blocks_user_label"`
	Label          string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_blocks_user_label"`
	Value          string    `gorm:"type:text"`
	Limit          int       `gorm:"not null"`
	BlockType      BlockType `gorm:"type:varchar(16);not null"`
	IsTemplate     bool      `gorm:"not null;default:false"`
	TemplateName   *string   `gorm:"type:varchar(255)"`
	Metadata       string    `gorm:"type:jsonb"`
	AccessCount    int64     `gorm:"not null;default:0"`
	LastAccessedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsDeleted      bool `gorm:"index;not null;default:false"`
}

// Tool is an agent-callable sandboxed capability.
type Tool struct {
	ID             string         `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string         `gorm:"index;type:varchar(64);not null"`
	Name           string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_tools_org_name"`
	SourceType     ToolSourceType `gorm:"type:varchar(16);not null"`
	SourceCode     string         `gorm:"type:text;not null"`
	JSONSchema     string         `gorm:"type:jsonb"`
	Tags           []string       `gorm:"serializer:json;type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsDeleted      bool `gorm:"index;not null;default:false"`
}

// BlockAgent is the many-to-many association between Agent and Block.
type BlockAgent struct {
	AgentID string `gorm:"primaryKey;type:varchar(64)"`
	BlockID string `gorm:"primaryKey;type:varchar(64)"`
}

func (BlockAgent) TableName() string { return "blocks_agents" }

// ToolAgent is the many-to-many association between Agent and Tool.
type ToolAgent struct {
	AgentID string `gorm:"primaryKey;type:varchar(64)"`
	ToolID  string `gorm:"primaryKey;type:varchar(64)"`
}

func (ToolAgent) TableName() string { return "tools_agents" }

// AllModels lists every GORM model for AutoMigrate/DropTable, in an order
// safe for foreign-key-free creation (associations last).
func AllModels() []interface{} {
	return []interface{}{
		&Organization{},
		&User{},
		&Agent{},
		&Message{},
		&Memory{},
		&Block{},
		&Tool{},
		&BlockAgent{},
		&ToolAgent{},
	}
}
