package domain

import (
	"time"

	"github.com/google/uuid"
)

// ElderlyProfile represents a person under care
type ElderlyProfile struct {
	ID            uuid.UUID  `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	PreferredName *string    `json:"preferred_name,omitempty"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`

	PhoneNumber    string  `json:"phone_number"`
	SecondaryPhone *string `json:"secondary_phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	AddressLine1   *string `json:"address_line1,omitempty"`
	AddressLine2   *string `json:"address_line2,omitempty"`
	City           *string `json:"city,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty"`

	EmergencyContactName         *string `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone        *string `json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelationship *string `json:"emergency_contact_relationship,omitempty"`

	MedicalNotes *string `json:"medical_notes,omitempty"`
	CareNotes    *string `json:"care_notes,omitempty"`

	PreferredCallTime string `json:"preferred_call_time"`
	Timezone          string `json:"timezone"`
	CallFrequency     string `json:"call_frequency"` // daily, weekdays, weekly
	Language          string `json:"language"`

	IsActive bool `json:"is_active"`

	// Provider-side agent linked to this person, if any
	AgentID *string `json:"agent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the name the agent should use when addressing the
// person: the preferred name when set, the first name otherwise
func (p *ElderlyProfile) DisplayName() string {
	if p.PreferredName != nil && *p.PreferredName != "" {
		return *p.PreferredName
	}
	return p.FirstName
}

// ScheduleOverride represents a per-date exception to the regular call
// schedule. No dispatcher consumes these in this service; they are stored
// for the external scheduling process.
type ScheduleOverride struct {
	ID               uuid.UUID  `json:"id"`
	ElderlyProfileID *uuid.UUID `json:"elderly_profile_id,omitempty"`
	OverrideDate     time.Time  `json:"override_date"`
	SkipCall         bool       `json:"skip_call"`
	CustomTime       *string    `json:"custom_time,omitempty"`
	Reason           *string    `json:"reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
