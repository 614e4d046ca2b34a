package medication

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/elderease/elderease/internal/domain/patient"
	"github.com/elderease/elderease/internal/platform/apierr"
	"github.com/elderease/elderease/internal/platform/websocket"
)

// =========== Mocks ===========

type mockRepo struct {
	store  map[int64]*Medication
	nextID int64
	names  map[int64]string // patient id -> name
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[int64]*Medication), names: map[int64]string{1: "A", 2: "B"}}
}

func (m *mockRepo) Create(_ context.Context, med *Medication) error {
	if _, ok := m.names[med.PatientID]; !ok {
		return patient.ErrPatientNotFound
	}
	m.nextID++
	med.ID = m.nextID
	m.store[med.ID] = med
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Medication, error) {
	med, ok := m.store[id]
	if !ok {
		return nil, ErrMedicationNotFound
	}
	cp := *med
	return &cp, nil
}

func (m *mockRepo) ordered() []*Medication {
	var out []*Medication
	for _, med := range m.store {
		out = append(out, med)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID int64) ([]*Medication, error) {
	var out []*Medication
	for _, med := range m.ordered() {
		if med.PatientID == patientID {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *mockRepo) ListPending(_ context.Context) ([]*Pending, error) {
	var out []*Pending
	for _, med := range m.ordered() {
		if !med.IsGivenToday {
			out = append(out, &Pending{Medication: *med, PatientName: m.names[med.PatientID]})
		}
	}
	return out, nil
}

func (m *mockRepo) CountGiven(_ context.Context) (int, int, error) {
	given := 0
	for _, med := range m.store {
		if med.IsGivenToday {
			given++
		}
	}
	return given, len(m.store), nil
}

func (m *mockRepo) MarkGiven(_ context.Context, id int64, at time.Time) (bool, error) {
	med, ok := m.store[id]
	if !ok || med.IsGivenToday {
		return false, nil
	}
	med.IsGivenToday = true
	med.GivenAt = &at
	return true, nil
}

func (m *mockRepo) ResetGiven(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for _, med := range m.store {
		if med.IsGivenToday && med.GivenAt.Before(before) {
			med.IsGivenToday = false
			med.GivenAt = nil
			n++
		}
	}
	return n, nil
}

type mockPatients struct{}

func (mockPatients) Get(_ context.Context, id int64) (*patient.Patient, error) {
	if id == 1 || id == 2 {
		return &patient.Patient{ID: id}, nil
	}
	return nil, patient.ErrPatientNotFound
}

type recordingPublisher struct{ events []websocket.Event }

func (r *recordingPublisher) Publish(_ context.Context, e websocket.Event) error {
	r.events = append(r.events, e)
	return nil
}

var morning = time.Date(2024, 1, 1, 8, 15, 0, 0, time.UTC)

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, mockPatients{}), repo
}

func mustCreate(t *testing.T, svc *Service, patientID int64, name, dose string) *Medication {
	t.Helper()
	m, err := svc.Create(context.Background(), patientID, CreateRequest{Name: &name, Dose: &dose}, morning)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return m
}

// =========== Tests ===========

func TestService_CreateInfersType(t *testing.T) {
	svc, _ := newTestService()
	tab := mustCreate(t, svc, 1, "Amlodipine", "1 tab")
	syrup := mustCreate(t, svc, 1, "Cough syrup", "10 ml")

	if tab.Type != TypeCount || syrup.Type != TypeML {
		t.Errorf("expected count/ml, got %s/%s", tab.Type, syrup.Type)
	}
	if tab.IsGivenToday || tab.GivenAt != nil {
		t.Error("new medication must be pending")
	}
}

func TestService_CreateNormalisesEmptyEnums(t *testing.T) {
	svc, _ := newTestService()
	name, dose, empty := "X", "1 tab", ""
	m, err := svc.Create(context.Background(), 1, CreateRequest{Name: &name, Dose: &dose, Timing: &empty, FoodRelation: &empty}, morning)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Timing != nil || m.FoodRelation != nil {
		t.Errorf("empty enums should be stored as null, got %v %v", m.Timing, m.FoodRelation)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService()
	name, dose, bad := "X", "1 tab", "noon"
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing name", CreateRequest{Dose: &dose}},
		{"missing dose", CreateRequest{Name: &name}},
		{"bad timing", CreateRequest{Name: &name, Dose: &dose, Timing: &bad}},
		{"bad food relation", CreateRequest{Name: &name, Dose: &dose, FoodRelation: &bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), 1, tt.req, morning); !apierr.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreateUnknownPatient(t *testing.T) {
	svc, _ := newTestService()
	name, dose := "X", "1 tab"
	_, err := svc.Create(context.Background(), 99, CreateRequest{Name: &name, Dose: &dose}, morning)
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestService_MarkGivenIsIdempotent(t *testing.T) {
	svc, repo := newTestService()
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)
	m := mustCreate(t, svc, 1, "Amlodipine", "1 tab")
	pub.events = nil

	res, err := svc.MarkGiven(context.Background(), m.ID, morning)
	if err != nil || res != MarkedGiven {
		t.Fatalf("first mark: %v, %v", res, err)
	}
	firstAt := *repo.store[m.ID].GivenAt

	res, err = svc.MarkGiven(context.Background(), m.ID, morning.Add(time.Hour))
	if err != nil || res != AlreadyGiven {
		t.Fatalf("second mark: %v, %v", res, err)
	}
	if !repo.store[m.ID].GivenAt.Equal(firstAt) {
		t.Errorf("given_at changed on repeat: %v -> %v", firstAt, repo.store[m.ID].GivenAt)
	}
	if len(pub.events) != 1 || pub.events[0].Type != websocket.EventMedicationGiven || pub.events[0].PatientID != 1 {
		t.Errorf("expected a single medication.given event, got %+v", pub.events)
	}
}

func TestService_MarkGivenNotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.MarkGiven(context.Background(), 404, morning); !errors.Is(err, ErrMedicationNotFound) {
		t.Fatalf("expected ErrMedicationNotFound, got %v", err)
	}
}

func TestService_ResetDaily(t *testing.T) {
	svc, repo := newTestService()
	yesterday := mustCreate(t, svc, 1, "A", "1 tab")
	today := mustCreate(t, svc, 2, "B", "5 ml")
	pending := mustCreate(t, svc, 2, "C", "5 ml")

	svc.MarkGiven(context.Background(), yesterday.ID, time.Date(2023, 12, 31, 21, 0, 0, 0, time.UTC))
	svc.MarkGiven(context.Background(), today.ID, time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC))

	n, err := svc.ResetDaily(context.Background(), time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ResetDaily: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reset, got %d", n)
	}
	if repo.store[yesterday.ID].IsGivenToday || repo.store[yesterday.ID].GivenAt != nil {
		t.Error("yesterday's dose should be pending again")
	}
	if !repo.store[today.ID].IsGivenToday {
		t.Error("today's dose must stay given")
	}
	if repo.store[pending.ID].IsGivenToday {
		t.Error("pending dose must stay pending")
	}
}

func TestService_ProgressAndPending(t *testing.T) {
	svc, _ := newTestService()
	a := mustCreate(t, svc, 1, "A", "1 tab")
	mustCreate(t, svc, 2, "B", "5 ml")
	svc.MarkGiven(context.Background(), a.ID, morning)

	given, total, err := svc.Progress(context.Background())
	if err != nil || given != 1 || total != 2 {
		t.Fatalf("Progress = %d/%d, %v", given, total, err)
	}
	pending, _ := svc.ListPending(context.Background())
	if len(pending) != 1 || pending[0].PatientName != "B" {
		t.Fatalf("unexpected pending list %+v", pending)
	}
}
