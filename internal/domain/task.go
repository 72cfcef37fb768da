package domain

import "time"

// TaskStatus enumerates generation task lifecycle states.
type TaskStatus string

const (
	TaskStatusQueued       TaskStatus = "QUEUED"
	TaskStatusSynthesizing TaskStatus = "SYNTHESIZING"
	TaskStatusCompleted    TaskStatus = "COMPLETED"
	TaskStatusFailed       TaskStatus = "FAILED"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// FundingMode selects how a task is paid for.
type FundingMode string

const (
	// FundingCredits debits the credit ledger on accepted submission and
	// refunds it on terminal failure.
	FundingCredits FundingMode = "credits"
	// FundingPersonalKey bills the user's own provider key; the ledger is
	// never touched.
	FundingPersonalKey FundingMode = "personal_key"
)

// AssetRef points at one reference input. URL is a public address; MediaID is
// the opaque identifier some providers require instead.
type AssetRef struct {
	URL     string `json:"url,omitempty"`
	MediaID string `json:"media_id,omitempty"`
}

// CreativeSpec is the user-facing description of one generation unit. It is
// immutable once a task is created so a failed task can be retried verbatim.
type CreativeSpec struct {
	Prompt        string
	Mode          string
	Duration      string
	AspectRatio   string
	Resolution    string
	References    []AssetRef
	TranslateToEn bool
}

// EngineConfig names the remote provider and model a spec is rendered with.
type EngineConfig struct {
	Provider string
	Model    string
}

// GenerationTask tracks one unit of remote generation work end to end.
// ID is assigned locally at creation; RemoteJobID only once the backend has
// accepted the submission.
type GenerationTask struct {
	ID          string
	RemoteJobID string
	Status      TaskStatus
	Spec        CreativeSpec
	Engine      EngineConfig
	Cost        int
	Funding     FundingMode
	Refunded    bool
	ResultURL   string
	Progress    int
	CreatedAt   time.Time
}

// DateKey returns the day bucket used for chronological grouping.
func (t *GenerationTask) DateKey() string {
	return t.CreatedAt.Format("2006-01-02")
}

// CreditFunded reports whether ledger debits and refunds apply to this task.
func (t *GenerationTask) CreditFunded() bool {
	return t.Funding == FundingCredits
}
