package call

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/provider/elevenlabs"
	"carecall-backend/internal/repository/postgres"
	apperrors "carecall-backend/pkg/errors"
	"carecall-backend/pkg/logger"
	"carecall-backend/pkg/metrics"
)

// ProfileRepository is the profile store surface the call service needs
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error)
}

// CallRepository is the call store surface the call service needs
type CallRepository interface {
	Create(ctx context.Context, call *domain.Call) error
	UpdateStatus(ctx context.Context, callID uuid.UUID, status domain.CallStatus) error
	MarkInProgress(ctx context.Context, callID uuid.UUID, conversationID string, initiatedAt time.Time) error
	ApplyOutcome(ctx context.Context, callID uuid.UUID, outcome *postgres.CallOutcome) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	List(ctx context.Context, filter *postgres.CallFilter) ([]*domain.CallWithDetails, error)
}

// TranscriptRepository is the transcript store surface the call service needs
type TranscriptRepository interface {
	Append(ctx context.Context, t *domain.CallTranscript) error
	ListByCall(ctx context.Context, callID uuid.UUID) ([]*domain.CallTranscript, error)
}

// SummaryRepository is the summary store surface the call service needs
type SummaryRepository interface {
	Upsert(ctx context.Context, s *domain.CallSummary) error
	GetByCall(ctx context.Context, callID uuid.UUID) (*domain.CallSummary, error)
}

// Provider places outbound calls through the external voice-agent service
type Provider interface {
	AgentID() string
	OutboundCall(ctx context.Context, toNumber string, dynamicVariables map[string]string) (*elevenlabs.OutboundCallResponse, error)
}

// Service handles the call lifecycle: initiation against the provider and
// the ingestion contract for provider-reported outcomes
type Service struct {
	profiles    ProfileRepository
	calls       CallRepository
	transcripts TranscriptRepository
	summaries   SummaryRepository
	provider    Provider
	metrics     *metrics.Metrics
}

// NewService creates a new call service. metrics may be nil in tests.
func NewService(
	profiles ProfileRepository,
	calls CallRepository,
	transcripts TranscriptRepository,
	summaries SummaryRepository,
	provider Provider,
	m *metrics.Metrics,
) *Service {
	return &Service{
		profiles:    profiles,
		calls:       calls,
		transcripts: transcripts,
		summaries:   summaries,
		provider:    provider,
		metrics:     m,
	}
}

// InitiateCallResult is returned on successful call initiation
type InitiateCallResult struct {
	CallID         uuid.UUID
	ConversationID string
	Message        string
}

// InitiateCall places an outbound check-in call to the given profile.
//
// Side effect order: profile lookup, pending call record insert, provider
// request, then one reconciling update. The call record always leaves this
// operation as in_progress or failed; there is no retry and no
// deduplication. If the reconciling write after a provider failure itself
// fails, the record stays scheduled; that gap is logged, not compensated.
func (s *Service) InitiateCall(ctx context.Context, profileID string) (*InitiateCallResult, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, apperrors.InvalidInputError("elderlyProfileId is required")
	}

	id, err := uuid.Parse(profileID)
	if err != nil {
		return nil, apperrors.InvalidInputError("elderlyProfileId is not a valid id")
	}

	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.ProfileNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}

	if profile.PhoneNumber == "" {
		return nil, apperrors.InvalidInputError("Profile has no phone number")
	}

	now := time.Now().UTC()
	agentID := s.provider.AgentID()

	record := &domain.Call{
		ID:               uuid.New(),
		ElderlyProfileID: &profile.ID,
		AgentID:          &agentID,
		Status:           domain.CallStatusScheduled,
		CallType:         domain.CallTypeManual,
		CreatedAt:        now,
	}

	if err := s.calls.Create(ctx, record); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	dynamicVariables := BuildDynamicVariables(profile, now)

	providerStart := time.Now()
	resp, err := s.provider.OutboundCall(ctx, profile.PhoneNumber, dynamicVariables)
	if s.metrics != nil {
		// Transport-level failures carry no HTTP status and record as 0
		status := http.StatusOK
		if err != nil {
			status = 0
			if apiErr, ok := err.(*elevenlabs.APIError); ok {
				status = apiErr.StatusCode
			}
		}
		s.metrics.RecordProviderRequest(status, time.Since(providerStart))
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCallFailed()
		}

		// The record exists already: reconcile it to failed before
		// surfacing the provider error
		if updErr := s.calls.UpdateStatus(ctx, record.ID, domain.CallStatusFailed); updErr != nil {
			logger.Error("call record left in scheduled state after provider failure",
				zap.String("call_id", record.ID.String()),
				zap.Error(updErr),
			)
		}

		if apiErr, ok := err.(*elevenlabs.APIError); ok {
			return nil, apperrors.UpstreamError(
				fmt.Sprintf("ElevenLabs API error: %s", apiErr.Body),
				apiErr.Body,
			)
		}
		return nil, apperrors.WrapWithStatus(apperrors.ErrCodeUpstream, "provider request failed", 502, err)
	}

	if err := s.calls.MarkInProgress(ctx, record.ID, resp.ConversationID, time.Now().UTC()); err != nil {
		// Provider call went out but the record still says scheduled
		logger.Error("call record not reconciled after successful provider call",
			zap.String("call_id", record.ID.String()),
			zap.String("conversation_id", resp.ConversationID),
			zap.Error(err),
		)
		return nil, apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordCallInitiated()
	}

	logger.Info("outbound call initiated",
		zap.String("call_id", record.ID.String()),
		zap.String("conversation_id", resp.ConversationID),
		zap.String("profile_id", profile.ID.String()),
	)

	return &InitiateCallResult{
		CallID:         record.ID,
		ConversationID: resp.ConversationID,
		Message:        fmt.Sprintf("Call initiated to %s %s", profile.FirstName, profile.LastName),
	}, nil
}

// CallDetails is a call joined with its transcript and summary
type CallDetails struct {
	Call       *domain.Call             `json:"call"`
	Transcript []*domain.CallTranscript `json:"transcript"`
	Summary    *domain.CallSummary      `json:"summary,omitempty"`
}

// GetCall retrieves one call with its transcript and summary
func (s *Service) GetCall(ctx context.Context, callID uuid.UUID) (*CallDetails, error) {
	record, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.CallNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}

	transcript, err := s.transcripts.ListByCall(ctx, callID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	summary, err := s.summaries.GetByCall(ctx, callID)
	if err != nil && err != postgres.ErrNotFound {
		return nil, apperrors.DatabaseError(err)
	}

	return &CallDetails{
		Call:       record,
		Transcript: transcript,
		Summary:    summary,
	}, nil
}

// ListCalls retrieves calls with optional profile/status filters
func (s *Service) ListCalls(ctx context.Context, filter *postgres.CallFilter) ([]*domain.CallWithDetails, error) {
	calls, err := s.calls.List(ctx, filter)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return calls, nil
}

// validOutcomeStatuses are the states the external outcome process may
// report. The initiation flow itself never writes these.
var validOutcomeStatuses = map[domain.CallStatus]bool{
	domain.CallStatusCompleted: true,
	domain.CallStatusMissed:    true,
	domain.CallStatusFailed:    true,
}

// ApplyProviderOutcome records the terminal outcome of a call as reported
// by the external webhook/analysis process
func (s *Service) ApplyProviderOutcome(ctx context.Context, callID uuid.UUID, outcome *postgres.CallOutcome) error {
	if !validOutcomeStatuses[outcome.Status] {
		return apperrors.InvalidInputError(fmt.Sprintf("invalid outcome status %q", outcome.Status))
	}

	record, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if err == postgres.ErrNotFound {
			return apperrors.CallNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}

	if record.Status.Terminal() {
		return apperrors.ConflictError(fmt.Sprintf("call already %s", record.Status))
	}

	if err := s.calls.ApplyOutcome(ctx, callID, outcome); err != nil {
		if err == postgres.ErrNotFound {
			return apperrors.CallNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}

	return nil
}

// AppendTranscript stores one transcript utterance for a call
func (s *Service) AppendTranscript(ctx context.Context, callID uuid.UUID, role, message string, timestampMS *int64, sequenceNumber int) (*domain.CallTranscript, error) {
	if role != "agent" && role != "user" {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid transcript role %q", role))
	}
	if message == "" {
		return nil, apperrors.InvalidInputError("transcript message is required")
	}

	entry := &domain.CallTranscript{
		ID:             uuid.New(),
		CallID:         &callID,
		Role:           role,
		Message:        message,
		TimestampMS:    timestampMS,
		SequenceNumber: sequenceNumber,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.transcripts.Append(ctx, entry); err != nil {
		if err == postgres.ErrSequenceConflict {
			return nil, apperrors.SequenceConflictError(
				fmt.Sprintf("sequence number %d is not greater than the stored maximum", sequenceNumber),
			)
		}
		return nil, apperrors.DatabaseError(err)
	}

	return entry, nil
}

var validUrgencyLevels = map[string]bool{
	"low": true, "normal": true, "high": true, "urgent": true,
}

var validMoods = map[domain.MoodAssessment]bool{
	domain.MoodPositive:  true,
	domain.MoodNeutral:   true,
	domain.MoodConcerned: true,
	domain.MoodUrgent:    true,
	domain.MoodSad:       true,
}

// SaveSummary stores the analysis of a call, replacing any previous one
func (s *Service) SaveSummary(ctx context.Context, summary *domain.CallSummary) error {
	if summary.CallID == nil {
		return apperrors.InvalidInputError("call id is required")
	}
	if summary.MoodAssessment != nil && !validMoods[*summary.MoodAssessment] {
		return apperrors.InvalidInputError(fmt.Sprintf("invalid mood assessment %q", *summary.MoodAssessment))
	}
	if summary.UrgencyLevel == "" {
		summary.UrgencyLevel = "normal"
	}
	if !validUrgencyLevels[summary.UrgencyLevel] {
		return apperrors.InvalidInputError(fmt.Sprintf("invalid urgency level %q", summary.UrgencyLevel))
	}

	if _, err := s.calls.GetByID(ctx, *summary.CallID); err != nil {
		if err == postgres.ErrNotFound {
			return apperrors.CallNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}

	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return apperrors.DatabaseError(err)
	}

	return nil
}
