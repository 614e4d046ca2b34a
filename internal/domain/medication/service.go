package medication

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elderease/elderease/internal/domain/patient"
	"github.com/elderease/elderease/internal/platform/apierr"
	"github.com/elderease/elderease/internal/platform/clock"
	"github.com/elderease/elderease/internal/platform/websocket"
)

// PatientLookup resolves the owner of a new medication.
type PatientLookup interface {
	Get(ctx context.Context, id int64) (*patient.Patient, error)
}

// CreateRequest is the body of POST /patients/:id/medicines.
type CreateRequest struct {
	Name         *string `json:"name"`
	Dose         *string `json:"dose"`
	Timing       *string `json:"timing"`
	FoodRelation *string `json:"food_relation"`
}

func (r CreateRequest) Validate() error {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return apierr.Invalid("name is required")
	}
	if utf8.RuneCountInString(*r.Name) > 150 {
		return apierr.Invalid("name must be at most 150 characters")
	}
	if r.Dose == nil || strings.TrimSpace(*r.Dose) == "" {
		return apierr.Invalid("dose is required")
	}
	if utf8.RuneCountInString(*r.Dose) > 100 {
		return apierr.Invalid("dose must be at most 100 characters")
	}
	if r.Timing != nil && *r.Timing != "" && !validTimings[*r.Timing] {
		return apierr.Invalid("invalid timing: %s", *r.Timing)
	}
	if r.FoodRelation != nil && *r.FoodRelation != "" && !validFoodRelations[*r.FoodRelation] {
		return apierr.Invalid("invalid food_relation: %s", *r.FoodRelation)
	}
	return nil
}

// MarkResult tells a first administration from a repeated one.
type MarkResult int

const (
	MarkedGiven MarkResult = iota
	AlreadyGiven
)

type Service struct {
	meds      Repository
	patients  PatientLookup
	publisher websocket.EventPublisher
}

func NewService(meds Repository, patients PatientLookup) *Service {
	return &Service{meds: meds, patients: patients, publisher: websocket.NopPublisher{}}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

// Create prescribes a medication to an existing patient. The unit type
// comes from the dose text.
func (s *Service) Create(ctx context.Context, patientID int64, req CreateRequest, now time.Time) (*Medication, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	m := &Medication{
		PatientID:    patientID,
		Name:         strings.TrimSpace(*req.Name),
		Dose:         strings.TrimSpace(*req.Dose),
		Timing:       emptyToNil(req.Timing),
		FoodRelation: emptyToNil(req.FoodRelation),
	}
	m.Type = InferType(m.Dose)
	if err := s.meds.Create(ctx, m); err != nil {
		return nil, err
	}
	websocket.Emit(ctx, s.publisher, websocket.EventMedicationCreated, patientID, m.View(), now)
	return m, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*Medication, error) {
	return s.meds.ListByPatient(ctx, patientID)
}

func (s *Service) ListPending(ctx context.Context) ([]*Pending, error) {
	return s.meds.ListPending(ctx)
}

func (s *Service) Progress(ctx context.Context) (given, total int, err error) {
	return s.meds.CountGiven(ctx)
}

// MarkGiven records that the dose was given at now. Repeating the call
// changes nothing and reports AlreadyGiven.
func (s *Service) MarkGiven(ctx context.Context, id int64, now time.Time) (MarkResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		changed, err := s.meds.MarkGiven(ctx, id, now)
		if err != nil {
			return 0, err
		}
		if changed {
			m, err := s.meds.GetByID(ctx, id)
			if err == nil {
				websocket.Emit(ctx, s.publisher, websocket.EventMedicationGiven, m.PatientID, m.View(), now)
			}
			return MarkedGiven, nil
		}

		m, err := s.meds.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}
		if m.IsGivenToday {
			return AlreadyGiven, nil
		}
		// A reset ran between the update and the lookup; try again.
	}
	return AlreadyGiven, nil
}

// ResetDaily returns to pending every medication given before the start of
// day.
func (s *Service) ResetDaily(ctx context.Context, day time.Time) (int64, error) {
	n, err := s.meds.ResetGiven(ctx, clock.Day(day))
	if err != nil {
		return 0, err
	}
	websocket.Emit(ctx, s.publisher, websocket.EventMedicationsReset, 0, map[string]interface{}{
		"date":  day.Format(clock.DateLayout),
		"reset": n,
	}, day)
	return n, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
