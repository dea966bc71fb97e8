package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus represents the lifecycle state of an outbound check-in call
type CallStatus string

const (
	CallStatusScheduled  CallStatus = "scheduled"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusMissed     CallStatus = "missed"
)

// Terminal reports whether no further status writes are expected.
// failed and completed are terminal for the initiation flow; missed is
// written by the external outcome process and is terminal as well.
func (s CallStatus) Terminal() bool {
	return s == CallStatusCompleted || s == CallStatusFailed || s == CallStatusMissed
}

// CallType distinguishes dispatcher-placed calls from operator-placed ones
type CallType string

const (
	CallTypeScheduled CallType = "scheduled"
	CallTypeManual    CallType = "manual"
)

// Call represents one outbound check-in attempt or completed instance
type Call struct {
	ID               uuid.UUID  `json:"id"`
	ElderlyProfileID *uuid.UUID `json:"elderly_profile_id,omitempty"` // nullable: profile may be deleted later

	// Provider conversation correlating this record to the provider-side
	// session. Set once the provider confirms the outbound call.
	ConversationID *string `json:"conversation_id,omitempty"`
	AgentID        *string `json:"agent_id,omitempty"`

	Status   CallStatus `json:"status"`
	CallType CallType   `json:"call_type"`

	InitiatedAt *time.Time `json:"initiated_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`

	DurationSecs      *int     `json:"duration_secs,omitempty"`
	TerminationReason *string  `json:"termination_reason,omitempty"`
	Cost              *float64 `json:"cost,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CallTranscript is one utterance of a call transcript. Entries are
// append-only with strictly increasing sequence numbers per call.
type CallTranscript struct {
	ID             uuid.UUID  `json:"id"`
	CallID         *uuid.UUID `json:"call_id,omitempty"`
	Role           string     `json:"role"` // agent, user
	Message        string     `json:"message"`
	TimestampMS    *int64     `json:"timestamp_ms,omitempty"`
	SequenceNumber int        `json:"sequence_number"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MoodAssessment is the analysis pipeline's read on the person's mood
type MoodAssessment string

const (
	MoodPositive  MoodAssessment = "positive"
	MoodNeutral   MoodAssessment = "neutral"
	MoodConcerned MoodAssessment = "concerned"
	MoodUrgent    MoodAssessment = "urgent"
	MoodSad       MoodAssessment = "sad"
)

// CallSummary is the derived analysis of a call, at most one per call.
// It is produced by an external analysis process and read-only here apart
// from the ingestion endpoint.
type CallSummary struct {
	ID                uuid.UUID       `json:"id"`
	CallID            *uuid.UUID      `json:"call_id,omitempty"`
	TranscriptSummary *string         `json:"transcript_summary,omitempty"`
	CallSuccessful    *bool           `json:"call_successful,omitempty"`
	MoodAssessment    *MoodAssessment `json:"mood_assessment,omitempty"`
	HealthMentions    []string        `json:"health_mentions"`
	NeedsMentioned    []string        `json:"needs_mentioned"`
	KeyTopics         []string        `json:"key_topics"`
	FollowUpRequired  bool            `json:"follow_up_required"`
	UrgencyLevel      string          `json:"urgency_level"` // low, normal, high, urgent
	CreatedAt         time.Time       `json:"created_at"`
}

// CallWithDetails is a call joined with its profile and summary for list views
type CallWithDetails struct {
	Call
	ElderlyProfile *ElderlyProfile `json:"elderly_profile,omitempty"`
	CallSummary    *CallSummary    `json:"call_summary,omitempty"`
}
