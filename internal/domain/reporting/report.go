// Package reporting assembles per-patient care reports over a date range
// and exports them as JSON, xlsx or pdf.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/copier"

	"github.com/elderease/elderease/internal/domain/dailyrecord"
	"github.com/elderease/elderease/internal/domain/medication"
	"github.com/elderease/elderease/internal/domain/patient"
)

type PatientSource interface {
	ListForReport(ctx context.Context, onlyID *int64) ([]*patient.Patient, error)
}

type MedicationSource interface {
	ListByPatient(ctx context.Context, patientID int64) ([]*medication.Medication, error)
}

type RecordSource interface {
	ListInRange(ctx context.Context, patientID int64, from, to time.Time) ([]*dailyrecord.DailyRecord, error)
}

// Query selects the records reported on. RawFrom and RawTo are echoed back
// exactly as the caller sent them.
type Query struct {
	From      time.Time
	To        time.Time
	RawFrom   string
	RawTo     string
	PatientID *int64
}

// Medication is a medication as it appears in a report. Fields are filled
// by name from medication.Medication.
type Medication struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Dose         string  `json:"dose"`
	Timing       *string `json:"timing"`
	Type         string  `json:"type"`
	FoodRelation *string `json:"food_relation"`
	IsGivenToday bool    `json:"is_given_today"`
}

type Entry struct {
	Patient      patient.Summary    `json:"patient"`
	Medications  []Medication       `json:"medications"`
	DailyRecords []dailyrecord.View `json:"daily_records"`
}

type Report struct {
	FromDate string  `json:"from_date"`
	ToDate   string  `json:"to_date"`
	Patients []Entry `json:"patients"`
}

type Service struct {
	patients PatientSource
	meds     MedicationSource
	records  RecordSource
}

func NewService(patients PatientSource, meds MedicationSource, records RecordSource) *Service {
	return &Service{patients: patients, meds: meds, records: records}
}

// Build reports every patient (or only q.PatientID) in id order with all of
// their medications and the daily records dated within [From, To].
func (s *Service) Build(ctx context.Context, q Query) (*Report, error) {
	patients, err := s.patients.ListForReport(ctx, q.PatientID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	report := &Report{FromDate: q.RawFrom, ToDate: q.RawTo, Patients: make([]Entry, 0, len(patients))}
	for _, p := range patients {
		meds, err := s.meds.ListByPatient(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("medications for patient %d: %w", p.ID, err)
		}
		records, err := s.records.ListInRange(ctx, p.ID, q.From, q.To)
		if err != nil {
			return nil, fmt.Errorf("records for patient %d: %w", p.ID, err)
		}

		entry := Entry{
			Patient:      p.Summary(),
			Medications:  make([]Medication, len(meds)),
			DailyRecords: make([]dailyrecord.View, 0, len(records)),
		}
		for i, m := range meds {
			if err := copier.Copy(&entry.Medications[i], m); err != nil {
				return nil, fmt.Errorf("copy medication %d: %w", m.ID, err)
			}
		}
		for _, r := range records {
			entry.DailyRecords = append(entry.DailyRecords, r.View())
		}
		report.Patients = append(report.Patients, entry)
	}
	return report, nil
}
