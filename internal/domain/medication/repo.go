package medication

import (
	"context"
	"errors"
	"time"
)

var ErrMedicationNotFound = errors.New("medication not found")

type Repository interface {
	// Create fails with patient.ErrPatientNotFound when the patient is gone.
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id int64) (*Medication, error)
	// ListByPatient returns the patient's medications in id order.
	ListByPatient(ctx context.Context, patientID int64) ([]*Medication, error)
	// ListPending returns every medication not given, in id order.
	ListPending(ctx context.Context) ([]*Pending, error)
	CountGiven(ctx context.Context) (given, total int, err error)
	// MarkGiven flips a pending medication to given at the given instant. It
	// reports false when nothing changed: the medication is unknown or was
	// already given.
	MarkGiven(ctx context.Context, id int64, at time.Time) (bool, error)
	// ResetGiven returns to pending every medication given before the
	// instant and reports how many changed.
	ResetGiven(ctx context.Context, before time.Time) (int64, error)
}
