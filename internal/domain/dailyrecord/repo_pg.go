package dailyrecord

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

const recordCols = `id, patient_id, date, weight, bp_systolic, bp_diastolic, bp, notes`

func scanRecord(row pgx.Row) (*DailyRecord, error) {
	var r DailyRecord
	err := row.Scan(&r.ID, &r.PatientID, &r.Date, &r.Weight, &r.BPSystolic, &r.BPDiastolic, &r.BP, &r.Notes)
	return &r, err
}

func (r *repoPG) GetForUpdate(ctx context.Context, patientID int64, day time.Time) (*DailyRecord, error) {
	rec, err := scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+recordCols+` FROM daily_record
		WHERE patient_id = $1 AND date = $2
		FOR UPDATE`, patientID, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily record: %w", err)
	}
	return rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *DailyRecord) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO daily_record (patient_id, date, weight, bp_systolic, bp_diastolic, bp, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		rec.PatientID, rec.Date, rec.Weight, rec.BPSystolic, rec.BPDiastolic, rec.BP, rec.Notes,
	).Scan(&rec.ID)
	switch {
	case db.IsPgError(err, db.CodeUniqueViolation):
		return ErrDuplicateRecord
	case db.IsPgError(err, db.CodeForeignKeyViolation):
		return patient.ErrPatientNotFound
	case err != nil:
		return fmt.Errorf("insert daily record: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, rec *DailyRecord) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE daily_record
		SET weight = $2, bp_systolic = $3, bp_diastolic = $4, bp = $5, notes = $6
		WHERE id = $1`,
		rec.ID, rec.Weight, rec.BPSystolic, rec.BPDiastolic, rec.BP, rec.Notes)
	if err != nil {
		return fmt.Errorf("update daily record %d: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]*DailyRecord, error) {
	return r.query(ctx, `
		SELECT `+recordCols+` FROM daily_record
		WHERE patient_id = $1
		ORDER BY date DESC`, patientID)
}

func (r *repoPG) ListByPatientInRange(ctx context.Context, patientID int64, from, to time.Time) ([]*DailyRecord, error) {
	return r.query(ctx, `
		SELECT `+recordCols+` FROM daily_record
		WHERE patient_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`, patientID, from, to)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*DailyRecord, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily records: %w", err)
	}
	defer rows.Close()

	var items []*DailyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily record: %w", err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
