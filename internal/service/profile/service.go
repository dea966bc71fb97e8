package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/repository/postgres"
	apperrors "carecall-backend/pkg/errors"
	"carecall-backend/pkg/logger"
)

// Repository is the profile store surface the profile service needs
type Repository interface {
	Create(ctx context.Context, p *domain.ElderlyProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.ElderlyProfile, error)
	Update(ctx context.Context, id uuid.UUID, u *postgres.ProfileUpdate) (*domain.ElderlyProfile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OverrideRepository is the schedule override store surface
type OverrideRepository interface {
	Create(ctx context.Context, o *domain.ScheduleOverride) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.ScheduleOverride, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles elderly profile management
type Service struct {
	profiles  Repository
	overrides OverrideRepository
}

// NewService creates a new profile service
func NewService(profiles Repository, overrides OverrideRepository) *Service {
	return &Service{profiles: profiles, overrides: overrides}
}

// CreateProfileInput carries the fields accepted on profile creation
type CreateProfileInput struct {
	FirstName     string
	LastName      string
	PreferredName *string
	DateOfBirth   *time.Time

	PhoneNumber    string
	SecondaryPhone *string
	Email          *string
	AddressLine1   *string
	AddressLine2   *string
	City           *string
	PostalCode     *string

	EmergencyContactName         *string
	EmergencyContactPhone        *string
	EmergencyContactRelationship *string

	MedicalNotes *string
	CareNotes    *string

	PreferredCallTime string
	Timezone          string
	CallFrequency     string
	Language          string

	AgentID *string
}

var validCallFrequencies = map[string]bool{
	"daily": true, "weekdays": true, "weekly": true,
}

// Create validates and stores a new profile. First name, last name and
// phone number are mandatory.
func (s *Service) Create(ctx context.Context, input *CreateProfileInput) (*domain.ElderlyProfile, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, apperrors.MissingFieldError("first_name")
	}
	if strings.TrimSpace(input.LastName) == "" {
		return nil, apperrors.MissingFieldError("last_name")
	}
	if strings.TrimSpace(input.PhoneNumber) == "" {
		return nil, apperrors.MissingFieldError("phone_number")
	}

	if input.PreferredCallTime == "" {
		input.PreferredCallTime = "10:00"
	}
	if input.Timezone == "" {
		input.Timezone = "Europe/Warsaw"
	}
	if input.CallFrequency == "" {
		input.CallFrequency = "daily"
	}
	if !validCallFrequencies[input.CallFrequency] {
		return nil, apperrors.InvalidInputError("call_frequency must be daily, weekdays or weekly")
	}
	if input.Language == "" {
		input.Language = "pl"
	}

	now := time.Now().UTC()
	p := &domain.ElderlyProfile{
		ID:            uuid.New(),
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		PreferredName: input.PreferredName,
		DateOfBirth:   input.DateOfBirth,

		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		SecondaryPhone: input.SecondaryPhone,
		Email:          input.Email,
		AddressLine1:   input.AddressLine1,
		AddressLine2:   input.AddressLine2,
		City:           input.City,
		PostalCode:     input.PostalCode,

		EmergencyContactName:         input.EmergencyContactName,
		EmergencyContactPhone:        input.EmergencyContactPhone,
		EmergencyContactRelationship: input.EmergencyContactRelationship,

		MedicalNotes: input.MedicalNotes,
		CareNotes:    input.CareNotes,

		PreferredCallTime: input.PreferredCallTime,
		Timezone:          input.Timezone,
		CallFrequency:     input.CallFrequency,
		Language:          input.Language,

		IsActive: true,
		AgentID:  input.AgentID,

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	logger.Info("profile created",
		zap.String("profile_id", p.ID.String()),
		zap.String("last_name", p.LastName),
	)

	return p, nil
}

// Get retrieves a profile by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.ProfileNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	return p, nil
}

// List retrieves profiles, optionally only active ones
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*domain.ElderlyProfile, error) {
	profiles, err := s.profiles.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return profiles, nil
}

// Update applies a partial update to a profile. Mandatory fields may be
// changed but not blanked.
func (s *Service) Update(ctx context.Context, id uuid.UUID, u *postgres.ProfileUpdate) (*domain.ElderlyProfile, error) {
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) == "" {
		return nil, apperrors.InvalidInputError("first_name cannot be empty")
	}
	if u.LastName != nil && strings.TrimSpace(*u.LastName) == "" {
		return nil, apperrors.InvalidInputError("last_name cannot be empty")
	}
	if u.PhoneNumber != nil && strings.TrimSpace(*u.PhoneNumber) == "" {
		return nil, apperrors.InvalidInputError("phone_number cannot be empty")
	}
	if u.CallFrequency != nil && !validCallFrequencies[*u.CallFrequency] {
		return nil, apperrors.InvalidInputError("call_frequency must be daily, weekdays or weekly")
	}

	p, err := s.profiles.Update(ctx, id, u)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.ProfileNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	return p, nil
}

// Delete removes a profile. Existing calls keep a null profile reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.profiles.Delete(ctx, id); err != nil {
		if err == postgres.ErrNotFound {
			return apperrors.ProfileNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}

	logger.Info("profile deleted", zap.String("profile_id", id.String()))
	return nil
}

// CreateOverrideInput carries a per-date schedule exception
type CreateOverrideInput struct {
	OverrideDate time.Time
	SkipCall     bool
	CustomTime   *string
	Reason       *string
}

// CreateOverride stores a schedule exception for a profile
func (s *Service) CreateOverride(ctx context.Context, profileID uuid.UUID, input *CreateOverrideInput) (*domain.ScheduleOverride, error) {
	if input.OverrideDate.IsZero() {
		return nil, apperrors.MissingFieldError("override_date")
	}

	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.ProfileNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}

	o := &domain.ScheduleOverride{
		ID:               uuid.New(),
		ElderlyProfileID: &profileID,
		OverrideDate:     input.OverrideDate,
		SkipCall:         input.SkipCall,
		CustomTime:       input.CustomTime,
		Reason:           input.Reason,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.overrides.Create(ctx, o); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return o, nil
}

// ListOverrides retrieves schedule exceptions for a profile
func (s *Service) ListOverrides(ctx context.Context, profileID uuid.UUID) ([]*domain.ScheduleOverride, error) {
	overrides, err := s.overrides.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return overrides, nil
}

// DeleteOverride removes a schedule exception
func (s *Service) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	if err := s.overrides.Delete(ctx, id); err != nil {
		if err == postgres.ErrNotFound {
			return apperrors.NotFoundError("Schedule override")
		}
		return apperrors.DatabaseError(err)
	}
	return nil
}
