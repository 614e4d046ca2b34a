package dailyrecord

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elderease/elderease/internal/domain/patient"
	"github.com/elderease/elderease/internal/platform/db"
)

// testPool connects to ELDEREASE_TEST_DATABASE_URL, applies the migrations
// and empties the tables. The test is skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("ELDEREASE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ELDEREASE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: url, MaxConns: 8, MinConns: 1})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, "../../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE patient RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func TestRepoPG_UpsertRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	patients := patient.NewRepoPG(pool)
	p := &patient.Patient{Name: "A", Age: 80, Gender: "Male", DateOfJoining: jan1}
	if err := patients.Create(ctx, p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	svc := NewService(NewRepoPG(pool), db.NewTransactor(pool))
	first := UpsertInput{PatientID: p.ID, Date: jan1, Weight: fp(70), BP: ParseBP("120/80")}
	if _, err := svc.Upsert(ctx, first, noon); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec, err := svc.Upsert(ctx, UpsertInput{PatientID: p.ID, Date: jan1, BP: ParseBP("125/82")}, noon)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if *rec.BP != "125/82" || *rec.BPSystolic != 125 || *rec.BPDiastolic != 82 || *rec.Weight != 70 {
		t.Errorf("unexpected record %+v", rec.View())
	}

	all, err := svc.ListByPatient(ctx, p.ID)
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one stored record, got %d (%v)", len(all), err)
	}
	if got := all[0].Date.Format("2006-01-02"); got != "2024-01-01" {
		t.Errorf("stored date = %s", got)
	}
}

func TestRepoPG_ConcurrentUpsertsKeepOneRow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	p := &patient.Patient{Name: "B", Age: 77, Gender: "Female", DateOfJoining: jan1}
	if err := patient.NewRepoPG(pool).Create(ctx, p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	svc := NewService(NewRepoPG(pool), db.NewTransactor(pool))

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Upsert(ctx, UpsertInput{PatientID: p.ID, Date: jan1, Weight: fp(60 + float64(i))}, noon)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("upsert: %v", err)
		}
	}

	all, _ := svc.ListByPatient(ctx, p.ID)
	if len(all) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(all))
	}
}

func TestRepoPG_UnknownPatient(t *testing.T) {
	pool := testPool(t)
	svc := NewService(NewRepoPG(pool), db.NewTransactor(pool))
	_, err := svc.Upsert(context.Background(), UpsertInput{PatientID: 424242, Date: jan1}, noon)
	if err != patient.ErrPatientNotFound {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestRepoPG_RangeIsInclusive(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	p := &patient.Patient{Name: "C", Age: 90, Gender: "Male", DateOfJoining: jan1}
	patient.NewRepoPG(pool).Create(ctx, p)
	svc := NewService(NewRepoPG(pool), db.NewTransactor(pool))
	for _, d := range []int{1, 5, 10, 11} {
		day := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
		if _, err := svc.Upsert(ctx, UpsertInput{PatientID: p.ID, Date: day}, noon); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	recs, err := svc.ListInRange(ctx, p.ID, jan1, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListInRange: %v", err)
	}
	if got := dates(recs); len(got) != 3 || got[0] != "2024-01-01" || got[2] != "2024-01-10" {
		t.Errorf("unexpected range %v", got)
	}
}
