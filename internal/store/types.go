package store

// Project is the top-level scoping entity: a canonical absolute path that
// owns Sessions (by reference), Issues, Plans, and Memory.
type Project struct {
	ProjectPath string `json:"project_path"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IssuePrefix string `json:"issue_prefix"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// Session is a bounded work unit attached to one or more project paths.
type Session struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Branch      string        `json:"branch,omitempty"`
	Channel     string        `json:"channel"`
	ProjectPath string        `json:"project_path"`
	Status      SessionStatus `json:"status"`
	CreatedAt   int64         `json:"created_at"`
	UpdatedAt   int64         `json:"updated_at"`
	EndedAt     *int64        `json:"ended_at,omitempty"`
}

// SessionProject is a row of the Session<->Project many-to-many relation.
type SessionProject struct {
	SessionID   string `json:"session_id"`
	ProjectPath string `json:"project_path"`
	IsPrimary   bool   `json:"is_primary"`
}

// Agent is the stable identity to which a current session is bound.
type Agent struct {
	AgentID         string `json:"agent_id"`
	CurrentSessionID string `json:"current_session_id,omitempty"`
	LastProjectPath string `json:"last_project_path"`
	LastBranch      string `json:"last_branch"`
	Provider        string `json:"provider"`
	LastActiveAt    int64  `json:"last_active_at"`
}

type ItemCategory string

const (
	CategoryReminder ItemCategory = "reminder"
	CategoryDecision ItemCategory = "decision"
	CategoryProgress ItemCategory = "progress"
	CategoryNote     ItemCategory = "note"
)

type ItemPriority string

const (
	PriorityHigh   ItemPriority = "high"
	PriorityNormal ItemPriority = "normal"
	PriorityLow    ItemPriority = "low"
)

type EmbeddingStatus string

const (
	EmbeddingNone    EmbeddingStatus = "none"
	EmbeddingPending EmbeddingStatus = "pending"
	EmbeddingOK      EmbeddingStatus = "ok"
	EmbeddingError   EmbeddingStatus = "error"
)

// MaxContextValueBytes is the hard cap on ContextItem.Value, per §8.
const MaxContextValueBytes = 100 * 1024

// ContextItem is a keyed piece of working memory inside a session.
type ContextItem struct {
	ID                string          `json:"id"`
	SessionID         string          `json:"session_id"`
	Key               string          `json:"key"`
	Value             string          `json:"value"`
	Category          ItemCategory    `json:"category"`
	Priority          ItemPriority    `json:"priority"`
	Channel           string          `json:"channel"`
	Tags              []string        `json:"tags"`
	Size              int             `json:"size"`
	CreatedAt         int64           `json:"created_at"`
	UpdatedAt         int64           `json:"updated_at"`
	EmbeddingStatus   EmbeddingStatus `json:"embedding_status"`
	EmbeddingProvider string          `json:"embedding_provider,omitempty"`
	EmbeddingModel    string          `json:"embedding_model,omitempty"`
	ChunkCount        int             `json:"chunk_count"`
	EmbeddedAt        *int64          `json:"embedded_at,omitempty"`
}

type MemoryCategory string

const (
	MemoryCommand MemoryCategory = "command"
	MemoryConfig  MemoryCategory = "config"
	MemoryNote    MemoryCategory = "note"
)

// Memory is a project-scoped key/value entry shared across sessions.
type Memory struct {
	ProjectPath string         `json:"project_path"`
	Key         string         `json:"key"`
	Value       string         `json:"value"`
	Category    MemoryCategory `json:"category"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}

type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueBlocked    IssueStatus = "blocked"
	IssueClosed     IssueStatus = "closed"
	IssueDeferred   IssueStatus = "deferred"
)

type IssueType string

const (
	IssueTask    IssueType = "task"
	IssueBug     IssueType = "bug"
	IssueFeature IssueType = "feature"
	IssueEpic    IssueType = "epic"
	IssueChore   IssueType = "chore"
)

// Issue is a hierarchical, dependency-linked unit of work scoped to a project.
type Issue struct {
	ID               string      `json:"id"`
	ShortID          string      `json:"short_id"`
	ProjectPath      string      `json:"project_path"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	Details          string      `json:"details,omitempty"`
	Status           IssueStatus `json:"status"`
	Priority         int         `json:"priority"`
	IssueType        IssueType   `json:"issue_type"`
	ParentID         string      `json:"parent_id,omitempty"`
	PlanID           string      `json:"plan_id,omitempty"`
	Labels           []string    `json:"labels"`
	AssignedToAgent  string      `json:"assigned_to_agent,omitempty"`
	CreatedInSession string      `json:"created_in_session,omitempty"`
	ClosedInSession  string      `json:"closed_in_session,omitempty"`
	ClosedByAgent    string      `json:"closed_by_agent,omitempty"`
	ClosedAt         *int64      `json:"closed_at,omitempty"`
	CreatedAt        int64       `json:"created_at"`
	UpdatedAt        int64       `json:"updated_at"`
}

type DepType string

const (
	DepBlocks         DepType = "blocks"
	DepRelated        DepType = "related"
	DepParentChild    DepType = "parent-child"
	DepDiscoveredFrom DepType = "discovered-from"
	DepDuplicateOf    DepType = "duplicate-of"
)

// IssueDependency is a directed edge in the issue dependency graph.
type IssueDependency struct {
	IssueID     string  `json:"issue_id"`
	DependsOnID string  `json:"depends_on_id"`
	DepType     DepType `json:"dep_type"`
}

type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
)

// Plan is a markdown PRD scoped to a project, grouping Issues via PlanID.
type Plan struct {
	ID                string     `json:"id"`
	ShortID           string     `json:"short_id"`
	ProjectPath       string     `json:"project_path"`
	Title             string     `json:"title"`
	Content           string     `json:"content"`
	SuccessCriteria   string     `json:"success_criteria,omitempty"`
	Status            PlanStatus `json:"status"`
	CreatedAt         int64      `json:"created_at"`
	UpdatedAt         int64      `json:"updated_at"`
}

// Checkpoint is a named, immutable-identity snapshot of ContextItems.
type Checkpoint struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	GitStatus   string `json:"git_status,omitempty"`
	GitBranch   string `json:"git_branch,omitempty"`
	ItemCount   int    `json:"item_count"`
	TotalSize   int    `json:"total_size"`
	CreatedAt   int64  `json:"created_at"`
}

// CheckpointItem is a row of the Checkpoint<->ContextItem membership relation.
type CheckpointItem struct {
	CheckpointID  string `json:"checkpoint_id"`
	ContextItemID string `json:"context_item_id"`
	GroupName     string `json:"group_name,omitempty"`
	GroupOrder    int    `json:"group_order,omitempty"`
}

// VectorChunk holds one embedded chunk of a ContextItem's value.
type VectorChunk struct {
	ItemID     string    `json:"item_id"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"embedding"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
}
