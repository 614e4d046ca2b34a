package medication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elderease/elderease/internal/domain/patient"
	"github.com/elderease/elderease/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const medCols = `m.id, m.patient_id, m.name, m.type, m.dose, m.timing, m.food_relation, m.is_given_today, m.given_at`

func scanMedication(row pgx.Row, extra ...interface{}) (*Medication, error) {
	var m Medication
	dest := append([]interface{}{
		&m.ID, &m.PatientID, &m.Name, &m.Type, &m.Dose, &m.Timing, &m.FoodRelation, &m.IsGivenToday, &m.GivenAt,
	}, extra...)
	return &m, row.Scan(dest...)
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medication (patient_id, name, type, dose, timing, food_relation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.PatientID, m.Name, m.Type, m.Dose, m.Timing, m.FoodRelation,
	).Scan(&m.ID)
	if db.IsPgError(err, db.CodeForeignKeyViolation) {
		return patient.ErrPatientNotFound
	}
	if err != nil {
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Medication, error) {
	m, err := scanMedication(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+medCols+` FROM medication m WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medication %d: %w", id, err)
	}
	return m, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Medication, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+medCols+` FROM medication m WHERE m.patient_id = $1 ORDER BY m.id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) ListPending(ctx context.Context) ([]*Pending, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+medCols+`, p.name
		FROM medication m
		JOIN patient p ON p.id = m.patient_id
		WHERE NOT m.is_given_today
		ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("list pending medications: %w", err)
	}
	defer rows.Close()

	var items []*Pending
	for rows.Next() {
		var name string
		m, err := scanMedication(rows, &name)
		if err != nil {
			return nil, fmt.Errorf("scan pending medication: %w", err)
		}
		items = append(items, &Pending{Medication: *m, PatientName: name})
	}
	return items, rows.Err()
}

func (r *repoPG) CountGiven(ctx context.Context) (int, int, error) {
	var given, total int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE is_given_today), COUNT(*) FROM medication`,
	).Scan(&given, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("count medications: %w", err)
	}
	return given, total, nil
}

func (r *repoPG) MarkGiven(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medication SET is_given_today = TRUE, given_at = $2
		WHERE id = $1 AND NOT is_given_today`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark medication %d given: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ResetGiven(ctx context.Context, before time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medication SET is_given_today = FALSE, given_at = NULL
		WHERE is_given_today AND given_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("reset given medications: %w", err)
	}
	return tag.RowsAffected(), nil
}
