package call

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"carecall-backend/internal/domain"
)

func fullProfile() *domain.ElderlyProfile {
	dob := time.Date(1946, 3, 12, 0, 0, 0, 0, time.UTC)
	preferred := "Pani Aniu"
	city := "Kraków"
	medical := "Nadciśnienie, leki rano"
	care := "Lubi rozmawiać o ogrodzie"
	contact := "Jan Kowalski"
	relationship := "syn"

	return &domain.ElderlyProfile{
		FirstName:                    "Anna",
		LastName:                     "Kowalska",
		PreferredName:                &preferred,
		DateOfBirth:                  &dob,
		City:                         &city,
		MedicalNotes:                 &medical,
		CareNotes:                    &care,
		EmergencyContactName:         &contact,
		EmergencyContactRelationship: &relationship,
		PhoneNumber:                  "+48123456789",
	}
}

func TestBuildContext_AllFields(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	got := BuildContext(fullProfile(), now)

	want := "Imię i nazwisko: Anna Kowalska\n" +
		"Preferowane zwracanie się: Pani Aniu\n" +
		"Wiek: 79 lat\n" +
		"Miasto: Kraków\n" +
		"Notatki medyczne: Nadciśnienie, leki rano\n" +
		"Notatki o opiece: Lubi rozmawiać o ogrodzie\n" +
		"Kontakt alarmowy: Jan Kowalski (syn)"

	assert.Equal(t, want, got)
}

func TestBuildContext_MinimalProfile(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	p := &domain.ElderlyProfile{FirstName: "Anna", LastName: "Kowalska"}

	got := BuildContext(p, now)

	assert.Equal(t, "Imię i nazwisko: Anna Kowalska", got)
}

func TestBuildContext_DefaultRelationship(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	contact := "Jan Kowalski"
	p := &domain.ElderlyProfile{
		FirstName:            "Anna",
		LastName:             "Kowalska",
		EmergencyContactName: &contact,
	}

	got := BuildContext(p, now)

	assert.Contains(t, got, "Kontakt alarmowy: Jan Kowalski (rodzina)")
}

func TestAgeAt_Boundary(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// Birthday reached today
	dob := time.Date(1996, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, AgeAt(dob, now))

	// Birthday tomorrow
	dob = time.Date(1996, 1, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 29, AgeAt(dob, now))
}

func TestBuildDynamicVariables(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	vars := BuildDynamicVariables(fullProfile(), now)

	assert.Equal(t, "Pani Aniu", vars["name"])
	assert.Equal(t, "Anna", vars["first_name"])
	assert.Equal(t, "Kowalska", vars["last_name"])
	assert.Equal(t, "Nadciśnienie, leki rano", vars["medical_notes"])
	assert.Equal(t, "Lubi rozmawiać o ogrodzie", vars["care_notes"])
	assert.Contains(t, vars["context"], "Imię i nazwisko: Anna Kowalska")
}

func TestBuildDynamicVariables_OmitsEmptyNotes(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	p := &domain.ElderlyProfile{FirstName: "Anna", LastName: "Kowalska"}

	vars := BuildDynamicVariables(p, now)

	assert.Equal(t, "Anna", vars["name"])
	_, hasMedical := vars["medical_notes"]
	_, hasCare := vars["care_notes"]
	assert.False(t, hasMedical)
	assert.False(t, hasCare)
}
