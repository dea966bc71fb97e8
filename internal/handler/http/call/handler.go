package call

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/repository/postgres"
	"carecall-backend/internal/service/call"
	"carecall-backend/pkg/errors"
	"carecall-backend/pkg/response"
)

// Handler handles call HTTP requests
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{callService: callService}
}

// InitiateCallRequest represents a call initiation request
type InitiateCallRequest struct {
	ElderlyProfileID string `json:"elderlyProfileId"`
}

// InitiateCall places an outbound check-in call.
// POST /v1/calls/initiate
//
// This endpoint keeps the dashboard's original flat wire contract rather
// than the standard envelope: 200 {success,callId,conversationId,message}
// or 400 {success:false,error}.
func (h *Handler) InitiateCall(c *gin.Context) {
	var req InitiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	result, err := h.callService.InitiateCall(c.Request.Context(), req.ElderlyProfileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   errors.GetAppError(err).Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"callId":         result.CallID,
		"conversationId": result.ConversationID,
		"message":        result.Message,
	})
}

// ListCalls retrieves calls with optional filters
// GET /v1/calls?profile_id=&status=&limit=
func (h *Handler) ListCalls(c *gin.Context) {
	filter := &postgres.CallFilter{}

	if profileIDStr := c.Query("profile_id"); profileIDStr != "" {
		profileID, err := uuid.Parse(profileIDStr)
		if err != nil {
			response.ValidationError(c, "Invalid profile ID")
			return
		}
		filter.ElderlyProfileID = &profileID
	}

	if status := c.Query("status"); status != "" {
		filter.Status = domain.CallStatus(status)
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			response.ValidationError(c, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	calls, err := h.callService.ListCalls(c.Request.Context(), filter)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, calls)
}

// GetCall retrieves one call with transcript and summary
// GET /v1/calls/:id
func (h *Handler) GetCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	details, err := h.callService.GetCall(c.Request.Context(), callID)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, details)
}

// OutcomeRequest represents a provider-reported call outcome
type OutcomeRequest struct {
	Status            string     `json:"status" binding:"required"`
	StartedAt         *time.Time `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	DurationSecs      *int       `json:"duration_secs"`
	TerminationReason *string    `json:"termination_reason"`
	Cost              *float64   `json:"cost"`
}

// ApplyOutcome records the terminal outcome of a call
// POST /v1/calls/:id/outcome
func (h *Handler) ApplyOutcome(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	outcome := &postgres.CallOutcome{
		Status:            domain.CallStatus(req.Status),
		StartedAt:         req.StartedAt,
		EndedAt:           req.EndedAt,
		DurationSecs:      req.DurationSecs,
		TerminationReason: req.TerminationReason,
		Cost:              req.Cost,
	}

	if err := h.callService.ApplyProviderOutcome(c.Request.Context(), callID, outcome); err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"call_id": callID,
		"status":  req.Status,
	})
}

// TranscriptRequest represents one transcript utterance
type TranscriptRequest struct {
	Role           string `json:"role" binding:"required"`
	Message        string `json:"message" binding:"required"`
	TimestampMS    *int64 `json:"timestamp_ms"`
	SequenceNumber int    `json:"sequence_number" binding:"required,min=1"`
}

// AppendTranscript stores one transcript utterance for a call
// POST /v1/calls/:id/transcript
func (h *Handler) AppendTranscript(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	var req TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	entry, err := h.callService.AppendTranscript(
		c.Request.Context(), callID, req.Role, req.Message, req.TimestampMS, req.SequenceNumber,
	)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, entry)
}

// SummaryRequest represents the analysis of a call
type SummaryRequest struct {
	TranscriptSummary *string  `json:"transcript_summary"`
	CallSuccessful    *bool    `json:"call_successful"`
	MoodAssessment    *string  `json:"mood_assessment"`
	HealthMentions    []string `json:"health_mentions"`
	NeedsMentioned    []string `json:"needs_mentioned"`
	KeyTopics         []string `json:"key_topics"`
	FollowUpRequired  bool     `json:"follow_up_required"`
	UrgencyLevel      string   `json:"urgency_level"`
}

// SaveSummary stores the analysis of a call, replacing any previous one
// PUT /v1/calls/:id/summary
func (h *Handler) SaveSummary(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	var req SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	summary := &domain.CallSummary{
		CallID:            &callID,
		TranscriptSummary: req.TranscriptSummary,
		CallSuccessful:    req.CallSuccessful,
		HealthMentions:    req.HealthMentions,
		NeedsMentioned:    req.NeedsMentioned,
		KeyTopics:         req.KeyTopics,
		FollowUpRequired:  req.FollowUpRequired,
		UrgencyLevel:      req.UrgencyLevel,
	}
	if req.MoodAssessment != nil {
		mood := domain.MoodAssessment(*req.MoodAssessment)
		summary.MoodAssessment = &mood
	}

	if err := h.callService.SaveSummary(c.Request.Context(), summary); err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}
