package patient

import (
	"context"
	"errors"
	"time"
)

var ErrPatientNotFound = errors.New("patient not found")

// Repository persists patients. GetByID returns ErrPatientNotFound for an
// unknown id.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// List returns every patient, newest first.
	List(ctx context.Context) ([]*Patient, error)
	// ListByID returns every patient in id order.
	ListByID(ctx context.Context) ([]*Patient, error)
	Count(ctx context.Context) (int, error)
	// ListWithoutRecordOn returns up to limit patients, in id order, that
	// have no daily record dated day.
	ListWithoutRecordOn(ctx context.Context, day time.Time, limit int) ([]*Patient, error)
}
