// Package policy holds the data model shared by the check kernel, the
// composite evaluator, the pattern extractor, the job controller, and the
// status aggregator.
package policy

import "time"

// Role identifies who produced a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockType tags a typed content block within a Message.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one typed element of a Message's block-form content.
// Only the fields relevant to Type are populated; the rest are zero values.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ToolUseID string         `json:"id,omitempty"`
	ToolName  string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`

	// BlockToolResult
	ToolUseResultID string `json:"tool_use_id,omitempty"`
	Content         any    `json:"content,omitempty"`
	IsError         bool   `json:"is_error,omitempty"`
}

// Message is one turn in a session. Content is either a plain string
// (Text != "", Blocks == nil) or an ordered sequence of typed blocks.
type Message struct {
	Role Role

	// Text holds plain-string content. Empty when Blocks is used.
	Text string

	// Blocks holds block-form content. Nil when Text is used.
	Blocks []ContentBlock

	// ToolCallID is the OpenAI-style top-level tool_call_id carried by a
	// "tool"-role message whose content is plain text rather than blocks.
	ToolCallID string
}

// HasBlocks reports whether the message uses block-form content.
func (m Message) HasBlocks() bool { return m.Blocks != nil }

// SessionMetadata is the optional descriptive envelope around a Session.
type SessionMetadata struct {
	SessionID           string
	Timestamp           time.Time
	DurationSeconds      float64
	UserID               string
	BusinessIdentifiers  map[string]any
	Tags                 []string
	Custom               map[string]any
}

// Session is an ordered, immutable sequence of Messages plus metadata.
type Session struct {
	ID       string
	Messages []Message
	Metadata SessionMetadata
}

// Severity is a Policy's declared importance.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// CheckType is the closed set of predicate kinds the Check Kernel knows
// how to dispatch.
type CheckType string

const (
	CheckToolCall               CheckType = "tool_call"
	CheckToolResponse            CheckType = "tool_response"
	CheckLLMToolResponse         CheckType = "llm_tool_response"
	CheckResponseLength          CheckType = "response_length"
	CheckToolCallCount           CheckType = "tool_call_count"
	CheckLLMResponseValidation   CheckType = "llm_response_validation"
	CheckResponseContains        CheckType = "response_contains"
	CheckToolAbsence             CheckType = "tool_absence"
)

// Check is a single predicate specification within a Policy.
type Check struct {
	ID                string
	Name              string
	Type              CheckType
	Params            map[string]any
	ViolationMessage  string // optional ${dotted.path} template
}

// ViolationLogicKind selects how the Composite Evaluator combines CheckResults.
type ViolationLogicKind string

const (
	LogicRequireAll    ViolationLogicKind = "REQUIRE_ALL"
	LogicRequireAny    ViolationLogicKind = "REQUIRE_ANY"
	LogicIfAnyThenAll  ViolationLogicKind = "IF_ANY_THEN_ALL"
	LogicIfAllThenAll  ViolationLogicKind = "IF_ALL_THEN_ALL"
	LogicForbidAll     ViolationLogicKind = "FORBID_ALL"
)

// ViolationLogic names which checks play which role in the combinator.
type ViolationLogic struct {
	Kind         ViolationLogicKind
	Triggers     []string
	Requirements []string
	Forbidden    []string
}

// PolicyConfig is the persisted, evaluatable body of a Policy.
type PolicyConfig struct {
	Checks         []Check
	ViolationLogic ViolationLogic
}

// Policy is a named, versioned composite of checks under a logical operator.
type Policy struct {
	ID          string
	AgentID     string
	Name        string
	Description string
	PolicyType  string
	Severity    Severity
	Enabled     bool
	Config      PolicyConfig
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LLMUsage records token/cost accounting for one or more LLM validator calls.
type LLMUsage struct {
	Provider      string
	Model         string
	APICalls      int
	InputTokens   int
	OutputTokens  int
	TotalTokens   int
	CostUSD       float64
	PerCall       []LLMUsage `json:"per_call,omitempty"`
}

// CheckResult is the outcome of evaluating one Check against a Session.
type CheckResult struct {
	CheckID     string
	CheckName   string
	CheckType   CheckType
	Passed      bool
	Message     string
	Details     map[string]any
	MatchedItems []map[string]any
	LLMUsage    *LLMUsage
}

// Evaluation is the persisted outcome of running one Policy against one Session.
type Evaluation struct {
	ID          string
	AgentID     string
	SessionID   string
	PolicyID    string
	IsCompliant bool
	Details     []map[string]any
	EvaluatedAt time.Time
}

// ComplianceStatus is the derived or user-recorded resolution state of a session.
type ComplianceStatus string

const (
	ComplianceUnknown   ComplianceStatus = ""
	ComplianceCompliant ComplianceStatus = "compliant"
	ComplianceIssues    ComplianceStatus = "issues"
	ComplianceResolved  ComplianceStatus = "resolved"
)

// SessionStatus is the persisted resolution state keyed by (agent, session).
type SessionStatus struct {
	AgentID          string
	SessionID        string
	ComplianceStatus ComplianceStatus
	ResolvedAt       *time.Time
	ResolvedBy       string
	ResolutionNotes  string
}

// AgentVariant is a canonical tool sequence observed across sessions.
type AgentVariant struct {
	ID                string
	AgentID           string
	Signature         string
	NormalizedSequence []string
	DisplayName       string
	MemberSessionIDs  []string
	ToolCount         int
}

// ToolTransition is a directed, counted tool-to-tool edge.
type ToolTransition struct {
	AgentID   string
	FromTool  string
	ToTool    string
	Count     int
	VariantID *string // nil means the aggregate row across all variants
}

// Sentinel tool names reserved in the transition table.
const (
	TransitionStart = "_start"
	TransitionEnd   = "_end"
)

// JobStatus is the lifecycle state of a ProcessingJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobResultItem records the per-item outcome of a batch job.
type JobResultItem struct {
	SessionID string
	PolicyID  string
	Error     string // empty on success
}

// ProcessingJob is an asynchronous batch evaluation request and its progress.
type ProcessingJob struct {
	ID             string
	AgentID        string
	Status         JobStatus
	JobType        string
	SessionIDs     []string
	PolicyIDs      []string
	RefreshVariants bool
	TotalItems     int
	CompletedItems int
	FailedItems    int
	Results        []JobResultItem
	ErrorMessage   string
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// Progress returns completed/total, or 0 when TotalItems is 0.
func (j ProcessingJob) Progress() float64 {
	if j.TotalItems == 0 {
		return 0
	}
	return float64(j.CompletedItems) / float64(j.TotalItems)
}
