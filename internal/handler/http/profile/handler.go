package profile

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carecall-backend/internal/repository/postgres"
	"carecall-backend/internal/service/profile"
	"carecall-backend/internal/service/storage"
	"carecall-backend/pkg/response"
)

// Handler handles elderly profile HTTP requests
type Handler struct {
	profileService *profile.Service
	storageService *storage.Service
}

// NewHandler creates a new profile handler. storageService may be nil when
// avatar storage is not configured.
func NewHandler(profileService *profile.Service, storageService *storage.Service) *Handler {
	return &Handler{
		profileService: profileService,
		storageService: storageService,
	}
}

// CreateProfileRequest represents a profile creation request
type CreateProfileRequest struct {
	FirstName     string     `json:"first_name" binding:"required"`
	LastName      string     `json:"last_name" binding:"required"`
	PreferredName *string    `json:"preferred_name"`
	DateOfBirth   *time.Time `json:"date_of_birth"`

	PhoneNumber    string  `json:"phone_number" binding:"required"`
	SecondaryPhone *string `json:"secondary_phone"`
	Email          *string `json:"email"`
	AddressLine1   *string `json:"address_line1"`
	AddressLine2   *string `json:"address_line2"`
	City           *string `json:"city"`
	PostalCode     *string `json:"postal_code"`

	EmergencyContactName         *string `json:"emergency_contact_name"`
	EmergencyContactPhone        *string `json:"emergency_contact_phone"`
	EmergencyContactRelationship *string `json:"emergency_contact_relationship"`

	MedicalNotes *string `json:"medical_notes"`
	CareNotes    *string `json:"care_notes"`

	PreferredCallTime string `json:"preferred_call_time"`
	Timezone          string `json:"timezone"`
	CallFrequency     string `json:"call_frequency"`
	Language          string `json:"language"`

	AgentID *string `json:"agent_id"`
}

// CreateProfile creates a new elderly profile
// POST /v1/profiles
func (h *Handler) CreateProfile(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	p, err := h.profileService.Create(c.Request.Context(), &profile.CreateProfileInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PreferredName: req.PreferredName,
		DateOfBirth:   req.DateOfBirth,

		PhoneNumber:    req.PhoneNumber,
		SecondaryPhone: req.SecondaryPhone,
		Email:          req.Email,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		City:           req.City,
		PostalCode:     req.PostalCode,

		EmergencyContactName:         req.EmergencyContactName,
		EmergencyContactPhone:        req.EmergencyContactPhone,
		EmergencyContactRelationship: req.EmergencyContactRelationship,

		MedicalNotes: req.MedicalNotes,
		CareNotes:    req.CareNotes,

		PreferredCallTime: req.PreferredCallTime,
		Timezone:          req.Timezone,
		CallFrequency:     req.CallFrequency,
		Language:          req.Language,

		AgentID: req.AgentID,
	})
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, p)
}

// ListProfiles retrieves profiles
// GET /v1/profiles?active=true
func (h *Handler) ListProfiles(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	profiles, err := h.profileService.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profiles)
}

// GetProfile retrieves one profile
// GET /v1/profiles/:id
func (h *Handler) GetProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid profile ID")
		return
	}

	p, err := h.profileService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, p)
}

// UpdateProfileRequest represents a partial profile update; absent fields
// are left untouched
type UpdateProfileRequest struct {
	FirstName     *string    `json:"first_name"`
	LastName      *string    `json:"last_name"`
	PreferredName *string    `json:"preferred_name"`
	DateOfBirth   *time.Time `json:"date_of_birth"`

	PhoneNumber    *string `json:"phone_number"`
	SecondaryPhone *string `json:"secondary_phone"`
	Email          *string `json:"email"`
	AddressLine1   *string `json:"address_line1"`
	AddressLine2   *string `json:"address_line2"`
	City           *string `json:"city"`
	PostalCode     *string `json:"postal_code"`

	EmergencyContactName         *string `json:"emergency_contact_name"`
	EmergencyContactPhone        *string `json:"emergency_contact_phone"`
	EmergencyContactRelationship *string `json:"emergency_contact_relationship"`

	MedicalNotes *string `json:"medical_notes"`
	CareNotes    *string `json:"care_notes"`

	PreferredCallTime *string `json:"preferred_call_time"`
	Timezone          *string `json:"timezone"`
	CallFrequency     *string `json:"call_frequency"`
	Language          *string `json:"language"`

	IsActive *bool   `json:"is_active"`
	AgentID  *string `json:"agent_id"`
}

// UpdateProfile applies a partial update
// PATCH /v1/profiles/:id
func (h *Handler) UpdateProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid profile ID")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	p, err := h.profileService.Update(c.Request.Context(), id, &postgres.ProfileUpdate{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PreferredName: req.PreferredName,
		DateOfBirth:   req.DateOfBirth,

		PhoneNumber:    req.PhoneNumber,
		SecondaryPhone: req.SecondaryPhone,
		Email:          req.Email,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		City:           req.City,
		PostalCode:     req.PostalCode,

		EmergencyContactName:         req.EmergencyContactName,
		EmergencyContactPhone:        req.EmergencyContactPhone,
		EmergencyContactRelationship: req.EmergencyContactRelationship,

		MedicalNotes: req.MedicalNotes,
		CareNotes:    req.CareNotes,

		PreferredCallTime: req.PreferredCallTime,
		Timezone:          req.Timezone,
		CallFrequency:     req.CallFrequency,
		Language:          req.Language,

		IsActive: req.IsActive,
		AgentID:  req.AgentID,
	})
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, p)
}

// DeleteProfile removes a profile
// DELETE /v1/profiles/:id
func (h *Handler) DeleteProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid profile ID")
		return
	}

	if err := h.profileService.Delete(c.Request.Context(), id); err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// UploadAvatar stores an avatar image for a profile
// POST /v1/profiles/:id/avatar
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.storageService == nil {
		response.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Avatar storage is not configured")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid profile ID")
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.ValidationError(c, "avatar file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")

	p, err := h.storageService.UploadAvatar(c.Request.Context(), id, file, fileHeader.Size, contentType)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, p)
}

// CreateOverrideRequest represents a per-date schedule exception
type CreateOverrideRequest struct {
	OverrideDate time.Time `json:"override_date" binding:"required"`
	SkipCall     bool      `json:"skip_call"`
	CustomTime   *string   `json:"custom_time"`
	Reason       *string   `json:"reason"`
}

// CreateOverride stores a schedule exception for a profile
// POST /v1/profiles/:id/overrides
func (h *Handler) CreateOverride(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid profile ID")
		return
	}

	var req CreateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	o, err := h.profileService.CreateOverride(c.Request.Context(), id, &profile.CreateOverrideInput{
		OverrideDate: req.OverrideDate,
		SkipCall:     req.SkipCall,
		CustomTime:   req.CustomTime,
		Reason:       req.Reason,
	})
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, o)
}

// ListOverrides retrieves schedule exceptions for a profile
// GET /v1/profiles/:id/overrides
func (h *Handler) ListOverrides(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid profile ID")
		return
	}

	overrides, err := h.profileService.ListOverrides(c.Request.Context(), id)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, overrides)
}

// DeleteOverride removes a schedule exception
// DELETE /v1/overrides/:id
func (h *Handler) DeleteOverride(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid override ID")
		return
	}

	if err := h.profileService.DeleteOverride(c.Request.Context(), id); err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}
