// Package dashboard summarises the ward for the current day: medication
// adherence, doses still to give and patients without a health update.
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/elderease/elderease/internal/domain/medication"
	"github.com/elderease/elderease/internal/domain/patient"
)

// PendingHealthLimit caps the patients listed as awaiting a health update.
const PendingHealthLimit = 10

type PatientSource interface {
	Count(ctx context.Context) (int, error)
	PendingHealthUpdates(ctx context.Context, day time.Time, limit int) ([]*patient.Patient, error)
}

type MedicationSource interface {
	Progress(ctx context.Context) (given, total int, err error)
	ListPending(ctx context.Context) ([]*medication.Pending, error)
}

type Progress struct {
	Given      int     `json:"given"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type Summary struct {
	MedicationProgress   Progress                 `json:"medication_progress"`
	PendingMedications   []medication.PendingView `json:"pending_medications"`
	PendingHealthUpdates []patient.Brief          `json:"pending_health_updates"`
	TotalPatients        int                      `json:"total_patients"`
}

type Service struct {
	patients PatientSource
	meds     MedicationSource
}

func NewService(patients PatientSource, meds MedicationSource) *Service {
	return &Service{patients: patients, meds: meds}
}

// Percentage is given/total as a percentage rounded to one decimal, or 0
// when there is nothing to give. Exact halves round to even: 1 of 16 is
// 6.2, not 6.3.
func Percentage(given, total int) float64 {
	if total == 0 {
		return 0
	}
	x := float64(given) / float64(total) * 100
	p, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	return p
}

// Summary builds the dashboard as of day.
func (s *Service) Summary(ctx context.Context, day time.Time) (*Summary, error) {
	given, total, err := s.meds.Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("medication progress: %w", err)
	}
	pending, err := s.meds.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending medications: %w", err)
	}
	awaiting, err := s.patients.PendingHealthUpdates(ctx, day, PendingHealthLimit)
	if err != nil {
		return nil, fmt.Errorf("pending health updates: %w", err)
	}
	count, err := s.patients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}

	out := &Summary{
		MedicationProgress:   Progress{Given: given, Total: total, Percentage: Percentage(given, total)},
		PendingMedications:   make([]medication.PendingView, 0, len(pending)),
		PendingHealthUpdates: make([]patient.Brief, 0, len(awaiting)),
		TotalPatients:        count,
	}
	for _, p := range pending {
		out.PendingMedications = append(out.PendingMedications, p.View())
	}
	for _, p := range awaiting {
		out.PendingHealthUpdates = append(out.PendingHealthUpdates, p.Brief())
	}
	return out, nil
}
