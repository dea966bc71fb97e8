package domain

import (
	"time"

	"github.com/google/uuid"
)

// IssueCategory classifies a follow-up item
type IssueCategory string

const (
	IssueCategoryHealth     IssueCategory = "health"
	IssueCategoryLoneliness IssueCategory = "loneliness"
	IssueCategoryPractical  IssueCategory = "practical"
	IssueCategoryEmergency  IssueCategory = "emergency"
	IssueCategoryOther      IssueCategory = "other"
)

// IssueStatus represents a follow-up item's state. Transitions are
// free-form: any status is reachable from any other.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusDismissed  IssueStatus = "dismissed"
)

// IssuePriority orders follow-up items for triage
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "low"
	IssuePriorityNormal IssuePriority = "normal"
	IssuePriorityHigh   IssuePriority = "high"
	IssuePriorityUrgent IssuePriority = "urgent"
)

// Issue is a tracked follow-up item derived from a call or entered manually
type Issue struct {
	ID               uuid.UUID  `json:"id"`
	ElderlyProfileID *uuid.UUID `json:"elderly_profile_id,omitempty"`
	CallID           *uuid.UUID `json:"call_id,omitempty"`

	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Category    IssueCategory `json:"category"`
	Status      IssueStatus   `json:"status"`
	Priority    IssuePriority `json:"priority"`

	ResolutionNotes *string    `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      *string    `json:"resolved_by,omitempty"`

	Source          string   `json:"source"` // manual, call_analysis
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IssueWithDetails is an issue joined with its profile for list views
type IssueWithDetails struct {
	Issue
	ElderlyProfile *ElderlyProfile `json:"elderly_profile,omitempty"`
}
