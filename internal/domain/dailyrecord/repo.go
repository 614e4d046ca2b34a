package dailyrecord

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("daily record not found")
	// ErrDuplicateRecord means another writer created the (patient, date)
	// record first.
	ErrDuplicateRecord = errors.New("daily record already exists for patient and date")
)

type Repository interface {
	// GetForUpdate loads and locks the record for (patientID, day) when
	// called inside a transaction. Returns ErrRecordNotFound when none exists.
	GetForUpdate(ctx context.Context, patientID int64, day time.Time) (*DailyRecord, error)
	// Create fails with ErrDuplicateRecord or patient.ErrPatientNotFound.
	Create(ctx context.Context, r *DailyRecord) error
	Update(ctx context.Context, r *DailyRecord) error
	// ListByPatient returns all records, most recent date first.
	ListByPatient(ctx context.Context, patientID int64) ([]*DailyRecord, error)
	// ListByPatientInRange returns records dated within [from, to], oldest
	// first.
	ListByPatientInRange(ctx context.Context, patientID int64, from, to time.Time) ([]*DailyRecord, error)
}
