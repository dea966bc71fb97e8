package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carecall-backend/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = pgx.ErrNoRows

const profileColumns = `
	id, first_name, last_name, preferred_name, date_of_birth, avatar_url,
	phone_number, secondary_phone, email, address_line1, address_line2, city, postal_code,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
	medical_notes, care_notes,
	preferred_call_time, timezone, call_frequency, language,
	is_active, agent_id, created_at, updated_at
`

// ProfileRepository handles elderly profile data operations
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Create inserts a new elderly profile
func (r *ProfileRepository) Create(ctx context.Context, p *domain.ElderlyProfile) error {
	query := `
		INSERT INTO elderly_profiles (
			id, first_name, last_name, preferred_name, date_of_birth, avatar_url,
			phone_number, secondary_phone, email, address_line1, address_line2, city, postal_code,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
			medical_notes, care_notes,
			preferred_call_time, timezone, call_frequency, language,
			is_active, agent_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16,
			$17, $18,
			$19, $20, $21, $22,
			$23, $24, $25, $26
		)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.FirstName, p.LastName, p.PreferredName, p.DateOfBirth, p.AvatarURL,
		p.PhoneNumber, p.SecondaryPhone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.PostalCode,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelationship,
		p.MedicalNotes, p.CareNotes,
		p.PreferredCallTime, p.Timezone, p.CallFrequency, p.Language,
		p.IsActive, p.AgentID, p.CreatedAt, p.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM elderly_profiles WHERE id = $1`

	p := &domain.ElderlyProfile{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.PreferredName, &p.DateOfBirth, &p.AvatarURL,
		&p.PhoneNumber, &p.SecondaryPhone, &p.Email, &p.AddressLine1, &p.AddressLine2, &p.City, &p.PostalCode,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.EmergencyContactRelationship,
		&p.MedicalNotes, &p.CareNotes,
		&p.PreferredCallTime, &p.Timezone, &p.CallFrequency, &p.Language,
		&p.IsActive, &p.AgentID, &p.CreatedAt, &p.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// List retrieves profiles ordered by last name, optionally only active ones
func (r *ProfileRepository) List(ctx context.Context, activeOnly bool) ([]*domain.ElderlyProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM elderly_profiles`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY last_name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.ElderlyProfile
	for rows.Next() {
		p := &domain.ElderlyProfile{}
		err := rows.Scan(
			&p.ID, &p.FirstName, &p.LastName, &p.PreferredName, &p.DateOfBirth, &p.AvatarURL,
			&p.PhoneNumber, &p.SecondaryPhone, &p.Email, &p.AddressLine1, &p.AddressLine2, &p.City, &p.PostalCode,
			&p.EmergencyContactName, &p.EmergencyContactPhone, &p.EmergencyContactRelationship,
			&p.MedicalNotes, &p.CareNotes,
			&p.PreferredCallTime, &p.Timezone, &p.CallFrequency, &p.Language,
			&p.IsActive, &p.AgentID, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// ProfileUpdate carries a partial update. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName     *string
	LastName      *string
	PreferredName *string
	DateOfBirth   *time.Time
	AvatarURL     *string

	PhoneNumber    *string
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

	PreferredCallTime *string
	Timezone          *string
	CallFrequency     *string
	Language          *string

	IsActive *bool
	AgentID  *string
}

// Update applies a partial update and returns the updated profile
func (r *ProfileRepository) Update(ctx context.Context, id uuid.UUID, u *ProfileUpdate) (*domain.ElderlyProfile, error) {
	sets := []string{}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.PreferredName != nil {
		add("preferred_name", *u.PreferredName)
	}
	if u.DateOfBirth != nil {
		add("date_of_birth", *u.DateOfBirth)
	}
	if u.AvatarURL != nil {
		add("avatar_url", *u.AvatarURL)
	}
	if u.PhoneNumber != nil {
		add("phone_number", *u.PhoneNumber)
	}
	if u.SecondaryPhone != nil {
		add("secondary_phone", *u.SecondaryPhone)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.AddressLine1 != nil {
		add("address_line1", *u.AddressLine1)
	}
	if u.AddressLine2 != nil {
		add("address_line2", *u.AddressLine2)
	}
	if u.City != nil {
		add("city", *u.City)
	}
	if u.PostalCode != nil {
		add("postal_code", *u.PostalCode)
	}
	if u.EmergencyContactName != nil {
		add("emergency_contact_name", *u.EmergencyContactName)
	}
	if u.EmergencyContactPhone != nil {
		add("emergency_contact_phone", *u.EmergencyContactPhone)
	}
	if u.EmergencyContactRelationship != nil {
		add("emergency_contact_relationship", *u.EmergencyContactRelationship)
	}
	if u.MedicalNotes != nil {
		add("medical_notes", *u.MedicalNotes)
	}
	if u.CareNotes != nil {
		add("care_notes", *u.CareNotes)
	}
	if u.PreferredCallTime != nil {
		add("preferred_call_time", *u.PreferredCallTime)
	}
	if u.Timezone != nil {
		add("timezone", *u.Timezone)
	}
	if u.CallFrequency != nil {
		add("call_frequency", *u.CallFrequency)
	}
	if u.Language != nil {
		add("language", *u.Language)
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	if u.AgentID != nil {
		add("agent_id", *u.AgentID)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf(
		`UPDATE elderly_profiles SET %s WHERE id = $1 RETURNING `+profileColumns,
		strings.Join(sets, ", "),
	)

	p := &domain.ElderlyProfile{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.PreferredName, &p.DateOfBirth, &p.AvatarURL,
		&p.PhoneNumber, &p.SecondaryPhone, &p.Email, &p.AddressLine1, &p.AddressLine2, &p.City, &p.PostalCode,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.EmergencyContactRelationship,
		&p.MedicalNotes, &p.CareNotes,
		&p.PreferredCallTime, &p.Timezone, &p.CallFrequency, &p.Language,
		&p.IsActive, &p.AgentID, &p.CreatedAt, &p.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return p, nil
}

// Delete removes a profile. Calls referencing it keep a null profile id.
func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM elderly_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActive returns the number of active profiles
func (r *ProfileRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM elderly_profiles WHERE is_active = true`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active profiles: %w", err)
	}
	return count, nil
}
