package dailyrecord

import (
	"context"
	"errors"
	"time"

	"github.com/elderease/elderease/internal/platform/db"
	"github.com/elderease/elderease/internal/platform/websocket"
)

type Service struct {
	records   Repository
	tx        db.Transactor
	publisher websocket.EventPublisher
}

func NewService(records Repository, tx db.Transactor) *Service {
	return &Service{records: records, tx: tx, publisher: websocket.NopPublisher{}}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

// Apply folds a submission into the existing record for its day. Blood
// pressure and notes always take the submitted values, so omitting them
// clears them; weight changes only when one was submitted.
func Apply(existing *DailyRecord, in UpsertInput) {
	if in.Weight != nil {
		existing.Weight = in.Weight
	}
	existing.BP = in.BP.Raw
	existing.BPSystolic = in.BP.Systolic
	existing.BPDiastolic = in.BP.Diastolic
	existing.Notes = in.Notes
}

// New builds the record stored for a first submission.
func New(in UpsertInput) *DailyRecord {
	return &DailyRecord{
		PatientID:   in.PatientID,
		Date:        in.Date,
		Weight:      in.Weight,
		BP:          in.BP.Raw,
		BPSystolic:  in.BP.Systolic,
		BPDiastolic: in.BP.Diastolic,
		Notes:       in.Notes,
	}
}

// Upsert creates or updates the record for (patient, date) inside one
// transaction. A concurrent insert of the same day surfaces as a unique
// violation and is retried once, which then finds and updates that row.
func (s *Service) Upsert(ctx context.Context, in UpsertInput, now time.Time) (*DailyRecord, error) {
	var rec *DailyRecord
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.tx.WithTx(ctx, func(ctx context.Context) error {
			r, err := s.upsertOnce(ctx, in)
			rec = r
			return err
		})
		if !errors.Is(err, ErrDuplicateRecord) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	websocket.Emit(ctx, s.publisher, websocket.EventDailyRecordSaved, rec.PatientID, rec.View(), now)
	return rec, nil
}

func (s *Service) upsertOnce(ctx context.Context, in UpsertInput) (*DailyRecord, error) {
	existing, err := s.records.GetForUpdate(ctx, in.PatientID, in.Date)
	switch {
	case err == nil:
		Apply(existing, in)
		if err := s.records.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, ErrRecordNotFound):
		rec := New(in)
		if err := s.records.Create(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, err
	}
}

// ListByPatient returns every record of the patient, newest date first. An
// unknown patient simply has none.
func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*DailyRecord, error) {
	return s.records.ListByPatient(ctx, patientID)
}

// ListInRange returns the patient's records dated from..to inclusive, oldest
// first.
func (s *Service) ListInRange(ctx context.Context, patientID int64, from, to time.Time) ([]*DailyRecord, error) {
	return s.records.ListByPatientInRange(ctx, patientID, from, to)
}
