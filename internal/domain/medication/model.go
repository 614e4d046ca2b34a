package medication

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Dose units. The unit is inferred from the dose text when a medication is
// created.
const (
	TypeCount = "count"
	TypeML    = "ml"
)

const (
	FoodBefore = "before_food"
	FoodAfter  = "after_food"
	FoodNone   = "none"
)

var validTimings = map[string]bool{
	"morning": true, "night": true, "before_food": true, "after_food": true, "any": true,
}

var validFoodRelations = map[string]bool{
	FoodBefore: true, FoodAfter: true, FoodNone: true,
}

// Medication is a medicine prescribed to one patient. IsGivenToday and
// GivenAt always change together: GivenAt is nil exactly when the dose is
// pending.
type Medication struct {
	ID           int64
	PatientID    int64
	Name         string
	Type         string
	Dose         string
	Timing       *string
	FoodRelation *string
	IsGivenToday bool
	GivenAt      *time.Time
}

// Pending is a medication not yet given, with its patient's name.
type Pending struct {
	Medication
	PatientName string
}

// InferType reports "count" for doses measured in tablets or teaspoons and
// "ml" for everything else.
func InferType(dose string) string {
	d := strings.ToLower(dose)
	if strings.Contains(d, "tab") || strings.Contains(d, "tsp") {
		return TypeCount
	}
	return TypeML
}

// TimingDisplay renders timing and food relation for carers, e.g.
// "Morning • After Food". Unset timing reads "Any time"; any food relation
// other than before_food reads as after food.
func TimingDisplay(timing, foodRelation *string) string {
	out := "Any time"
	if timing != nil && *timing != "" {
		out = capitalize(*timing)
	}
	if foodRelation != nil && *foodRelation != "" {
		if *foodRelation == FoodBefore {
			out += " • Before Food"
		} else {
			out += " • After Food"
		}
	}
	return out
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func (m *Medication) TimingDisplay() string {
	return TimingDisplay(m.Timing, m.FoodRelation)
}

// View is one entry of a patient's medicine list.
type View struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Dose          string  `json:"dose"`
	Timing        *string `json:"timing"`
	TimingDisplay string  `json:"timing_display"`
	Type          string  `json:"type"`
	FoodRelation  *string `json:"food_relation"`
	IsGivenToday  bool    `json:"is_given_today"`
}

func (m *Medication) View() View {
	return View{
		ID:            m.ID,
		Name:          m.Name,
		Dose:          m.Dose,
		Timing:        m.Timing,
		TimingDisplay: m.TimingDisplay(),
		Type:          m.Type,
		FoodRelation:  m.FoodRelation,
		IsGivenToday:  m.IsGivenToday,
	}
}

// PendingView is a dashboard entry for a dose still to be given.
type PendingView struct {
	MedicationID  int64   `json:"medication_id"`
	PatientName   string  `json:"patient_name"`
	MedicineName  string  `json:"medicine_name"`
	Dose          string  `json:"dose"`
	TimingDisplay string  `json:"timing_display"`
	Type          string  `json:"type"`
	Timing        *string `json:"timing"`
	FoodRelation  *string `json:"food_relation"`
}

func (p *Pending) View() PendingView {
	return PendingView{
		MedicationID:  p.ID,
		PatientName:   p.PatientName,
		MedicineName:  p.Name,
		Dose:          p.Dose,
		TimingDisplay: p.TimingDisplay(),
		Type:          p.Type,
		Timing:        p.Timing,
		FoodRelation:  p.FoodRelation,
	}
}
