package issue

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/repository/postgres"
	"carecall-backend/internal/service/issue"
	"carecall-backend/pkg/response"
)

// Handler handles follow-up issue HTTP requests
type Handler struct {
	issueService *issue.Service
}

// NewHandler creates a new issue handler
func NewHandler(issueService *issue.Service) *Handler {
	return &Handler{issueService: issueService}
}

// CreateIssueRequest represents an issue creation request
type CreateIssueRequest struct {
	ElderlyProfileID *string  `json:"elderly_profile_id"`
	CallID           *string  `json:"call_id"`
	Title            string   `json:"title" binding:"required"`
	Description      *string  `json:"description"`
	Category         string   `json:"category"`
	Priority         string   `json:"priority"`
	Source           string   `json:"source"`
	ConfidenceScore  *float64 `json:"confidence_score"`
}

// CreateIssue creates a new follow-up issue
// POST /v1/issues
func (h *Handler) CreateIssue(c *gin.Context) {
	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	input := &issue.CreateIssueInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        domain.IssueCategory(req.Category),
		Priority:        domain.IssuePriority(req.Priority),
		Source:          req.Source,
		ConfidenceScore: req.ConfidenceScore,
	}

	if req.ElderlyProfileID != nil {
		profileID, err := uuid.Parse(*req.ElderlyProfileID)
		if err != nil {
			response.ValidationError(c, "Invalid profile ID")
			return
		}
		input.ElderlyProfileID = &profileID
	}

	if req.CallID != nil {
		callID, err := uuid.Parse(*req.CallID)
		if err != nil {
			response.ValidationError(c, "Invalid call ID")
			return
		}
		input.CallID = &callID
	}

	created, err := h.issueService.Create(c.Request.Context(), input)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// ListIssues retrieves issues with optional filters
// GET /v1/issues?profile_id=&status=&priority=&limit=
func (h *Handler) ListIssues(c *gin.Context) {
	filter := &postgres.IssueFilter{}

	if profileIDStr := c.Query("profile_id"); profileIDStr != "" {
		profileID, err := uuid.Parse(profileIDStr)
		if err != nil {
			response.ValidationError(c, "Invalid profile ID")
			return
		}
		filter.ElderlyProfileID = &profileID
	}

	filter.Status = domain.IssueStatus(c.Query("status"))
	filter.Priority = domain.IssuePriority(c.Query("priority"))

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			response.ValidationError(c, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	issues, err := h.issueService.List(c.Request.Context(), filter)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, issues)
}

// ListOpenIssues retrieves open issues ordered urgent-first
// GET /v1/issues/open?limit=
func (h *Handler) ListOpenIssues(c *gin.Context) {
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			response.ValidationError(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	issues, err := h.issueService.ListOpen(c.Request.Context(), limit)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, issues)
}

// GetIssue retrieves one issue
// GET /v1/issues/:id
func (h *Handler) GetIssue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid issue ID")
		return
	}

	found, err := h.issueService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, found)
}

// UpdateIssueRequest represents a partial issue update
type UpdateIssueRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Category        *string    `json:"category"`
	Status          *string    `json:"status"`
	Priority        *string    `json:"priority"`
	ResolutionNotes *string    `json:"resolution_notes"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolvedBy      *string    `json:"resolved_by"`
}

// UpdateIssue applies a partial update
// PATCH /v1/issues/:id
func (h *Handler) UpdateIssue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid issue ID")
		return
	}

	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	update := &postgres.IssueUpdate{
		Title:           req.Title,
		Description:     req.Description,
		ResolutionNotes: req.ResolutionNotes,
		ResolvedAt:      req.ResolvedAt,
		ResolvedBy:      req.ResolvedBy,
	}
	if req.Category != nil {
		category := domain.IssueCategory(*req.Category)
		update.Category = &category
	}
	if req.Status != nil {
		status := domain.IssueStatus(*req.Status)
		update.Status = &status
	}
	if req.Priority != nil {
		priority := domain.IssuePriority(*req.Priority)
		update.Priority = &priority
	}

	updated, err := h.issueService.Update(c.Request.Context(), id, update)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

// DeleteIssue removes an issue
// DELETE /v1/issues/:id
func (h *Handler) DeleteIssue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid issue ID")
		return
	}

	if err := h.issueService.Delete(c.Request.Context(), id); err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}
