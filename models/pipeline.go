package models

import "time"

// Step identifiers, in the order they appear in the progress feed.
type StepID string

const (
	StepLocation StepID = "location"
	StepPhoto    StepID = "photo"
	StepAudio    StepID = "audio"
	StepUpload   StepID = "upload"
	StepEmail    StepID = "email"
	StepSMS      StepID = "sms"
	StepPersist  StepID = "persist"
)

type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

func stepStatusRank(s StepStatus) int {
	switch s {
	case StepStatusPending:
		return 0
	case StepStatusProcessing:
		return 1
	case StepStatusCompleted, StepStatusFailed:
		return 2
	default:
		return 0
	}
}

// CanTransition reports whether moving from one status to another respects
// the monotonic step lifecycle: pending -> processing -> (completed|failed).
// A step never regresses and terminal statuses never change.
func (s StepStatus) CanTransition(to StepStatus) bool {
	if s == to {
		return false
	}
	return stepStatusRank(to) > stepStatusRank(s)
}

// IsTerminal reports whether the status is completed or failed.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// DispatchStep is one visible stage of the progress feed. Steps are created
// pending at run start and mutated in place by the orchestrator.
type DispatchStep struct {
	ID       StepID     `json:"id"`
	Label    string     `json:"label"`
	Status   StepStatus `json:"status"`
	Progress int        `json:"progress"`
}

// Pipeline states.
type PipelineState string

const (
	StateIdle            PipelineState = "idle"
	StatePermissionCheck PipelineState = "permission_check"
	StateCollecting      PipelineState = "collecting"
	StateUploading       PipelineState = "uploading"
	StateDispatching     PipelineState = "dispatching"
	StateCompleted       PipelineState = "completed"
	StatePartiallyFailed PipelineState = "partially_failed"
	StateFailed          PipelineState = "failed"
	StateError           PipelineState = "error"
)

// Overall outcome of one pipeline run.
type OverallStatus string

const (
	StatusCompleted       OverallStatus = "Completed"
	StatusPartiallyFailed OverallStatus = "PartiallyFailed"
	StatusFailed          OverallStatus = "Failed"
)

// Notification channel names.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelPersist = "persist"
)

// ChannelResult records the outcome of one dispatch channel.
type ChannelResult struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// PipelineResult is the terminal, immutable summary of one run.
type PipelineResult struct {
	OverallStatus  OverallStatus            `json:"overallStatus"`
	ChannelResults map[string]ChannelResult `json:"channelResults"`
	Evidence       EvidenceBundle           `json:"evidence"`
	Uploaded       UploadedEvidence         `json:"uploaded"`
	FinishedAt     time.Time                `json:"finishedAt"`
}

// ProgressUpdate is one frame of the live progress feed the UI subscribes
// to. Steps is a copy; subscribers may not mutate pipeline state through it.
type ProgressUpdate struct {
	State           PipelineState  `json:"state"`
	Steps           []DispatchStep `json:"steps"`
	OverallProgress int            `json:"overallProgress"`
}

// SOSRecord is the payload written by the persist channel. CreatedAt is set
// server-side by stores that support it (Firestore); the Mongo repository
// stamps it at insert time.
type SOSRecord struct {
	UserID     string       `json:"userId" bson:"userId"`
	PhotoURL   string       `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	AudioURL   string       `json:"audioUrl,omitempty" bson:"audioUrl,omitempty"`
	Location   *LocationFix `json:"location,omitempty" bson:"location,omitempty"`
	Recipients []string     `json:"recipients" bson:"recipients"`
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
}
