package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elderease/elderease/internal/platform/apierr"
	"github.com/elderease/elderease/internal/platform/websocket"
)

// CreateRequest is the body of POST /patients. Pointers distinguish a
// missing field from its zero value.
type CreateRequest struct {
	Name           *string `json:"name"`
	Age            *int    `json:"age"`
	Gender         *string `json:"gender"`
	ChiefComplaint *string `json:"chief_complaint"`
}

// UnmarshalJSON accepts age as a JSON number or as a numeric string such as
// "80".
func (r *CreateRequest) UnmarshalJSON(data []byte) error {
	type fields CreateRequest
	var aux struct {
		fields
		Age json.RawMessage `json:"age"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	age, err := parseAge(aux.Age)
	if err != nil {
		return err
	}
	*r = CreateRequest(aux.fields)
	r.Age = age
	return nil
}

// parseAge reads an integral number or numeric string. Absent and null
// leave age unset.
func parseAge(raw json.RawMessage) (*int, error) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return nil, nil
	}
	text := string(t)
	if t[0] == '"' {
		if err := json.Unmarshal(t, &text); err != nil {
			return nil, apierr.Invalid("age must be an integer")
		}
		text = strings.TrimSpace(text)
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return nil, apierr.Invalid("age must be an integer")
		}
		n = int(f)
	}
	if n > math.MaxInt32 {
		return nil, apierr.Invalid("age is out of range")
	}
	return &n, nil
}

// Validate checks the request against the column limits of the patient
// table.
func (r CreateRequest) Validate() error {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return apierr.Invalid("name is required")
	}
	if utf8.RuneCountInString(*r.Name) > 100 {
		return apierr.Invalid("name must be at most 100 characters")
	}
	if r.Age == nil {
		return apierr.Invalid("age is required")
	}
	if *r.Age < 0 {
		return apierr.Invalid("age must not be negative")
	}
	if r.Gender == nil || strings.TrimSpace(*r.Gender) == "" {
		return apierr.Invalid("gender is required")
	}
	if utf8.RuneCountInString(*r.Gender) > 20 {
		return apierr.Invalid("gender must be at most 20 characters")
	}
	return nil
}

type Service struct {
	patients  Repository
	publisher websocket.EventPublisher
}

func NewService(repo Repository) *Service {
	return &Service{patients: repo, publisher: websocket.NopPublisher{}}
}

// SetPublisher attaches the care-event feed.
func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

// Create stores a new patient who joins on today.
func (s *Service) Create(ctx context.Context, req CreateRequest, today time.Time) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := &Patient{
		Name:           strings.TrimSpace(*req.Name),
		Age:            *req.Age,
		Gender:         strings.TrimSpace(*req.Gender),
		ChiefComplaint: req.ChiefComplaint,
		DateOfJoining:  today,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	websocket.Emit(ctx, s.publisher, websocket.EventPatientCreated, p.ID, p.Brief(), p.CreatedAt)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	return s.patients.List(ctx)
}

// ListForReport returns patients in id order, or only the patient with
// onlyID when it is non-nil. An unknown onlyID yields an empty list.
func (s *Service) ListForReport(ctx context.Context, onlyID *int64) ([]*Patient, error) {
	if onlyID == nil {
		return s.patients.ListByID(ctx)
	}
	p, err := s.patients.GetByID(ctx, *onlyID)
	if errors.Is(err, ErrPatientNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*Patient{p}, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.patients.Count(ctx)
}

// PendingHealthUpdates lists up to limit patients with no record on day.
func (s *Service) PendingHealthUpdates(ctx context.Context, day time.Time, limit int) ([]*Patient, error) {
	return s.patients.ListWithoutRecordOn(ctx, day, limit)
}
