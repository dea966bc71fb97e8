package call

import (
	"fmt"
	"math"
	"strings"
	"time"

	"carecall-backend/internal/domain"
)

// millisecondsPerYear uses the average Julian year length, matching the
// agent prompt's expectation of a plain integer age
const millisecondsPerYear = 365.25 * 24 * 60 * 60 * 1000

// AgeAt derives an integer age from a date of birth: the floor of elapsed
// milliseconds divided by the average Julian year length
func AgeAt(dateOfBirth, now time.Time) int {
	ms := now.Sub(dateOfBirth).Milliseconds()
	return int(math.Floor(float64(ms) / millisecondsPerYear))
}

// BuildContextLines renders the profile as human-readable context lines for
// the agent, in a fixed field order. Empty and missing fields produce no
// line at all. Output is deterministic for identical input.
func BuildContextLines(p *domain.ElderlyProfile, now time.Time) []string {
	lines := []string{
		fmt.Sprintf("Imię i nazwisko: %s %s", p.FirstName, p.LastName),
	}

	if p.PreferredName != nil && *p.PreferredName != "" {
		lines = append(lines, "Preferowane zwracanie się: "+*p.PreferredName)
	}

	if p.DateOfBirth != nil {
		lines = append(lines, fmt.Sprintf("Wiek: %d lat", AgeAt(*p.DateOfBirth, now)))
	}

	if p.City != nil && *p.City != "" {
		lines = append(lines, "Miasto: "+*p.City)
	}

	if p.MedicalNotes != nil && *p.MedicalNotes != "" {
		lines = append(lines, "Notatki medyczne: "+*p.MedicalNotes)
	}

	if p.CareNotes != nil && *p.CareNotes != "" {
		lines = append(lines, "Notatki o opiece: "+*p.CareNotes)
	}

	if p.EmergencyContactName != nil && *p.EmergencyContactName != "" {
		relationship := "rodzina"
		if p.EmergencyContactRelationship != nil && *p.EmergencyContactRelationship != "" {
			relationship = *p.EmergencyContactRelationship
		}
		lines = append(lines, fmt.Sprintf("Kontakt alarmowy: %s (%s)", *p.EmergencyContactName, relationship))
	}

	return lines
}

// BuildContext joins the context lines into the single string passed to
// the agent as the "context" dynamic variable
func BuildContext(p *domain.ElderlyProfile, now time.Time) string {
	return strings.Join(BuildContextLines(p, now), "\n")
}

// BuildDynamicVariables assembles the per-call dynamic-variable bag the
// provider injects into the agent. Medical and care notes are included
// only when present.
func BuildDynamicVariables(p *domain.ElderlyProfile, now time.Time) map[string]string {
	vars := map[string]string{
		"name":       p.DisplayName(),
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"context":    BuildContext(p, now),
	}

	if p.MedicalNotes != nil && *p.MedicalNotes != "" {
		vars["medical_notes"] = *p.MedicalNotes
	}

	if p.CareNotes != nil && *p.CareNotes != "" {
		vars["care_notes"] = *p.CareNotes
	}

	return vars
}
