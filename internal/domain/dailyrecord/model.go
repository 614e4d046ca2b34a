package dailyrecord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elderease/elderease/internal/platform/clock"
)

// MaxBPLength is the width of the bp column.
const MaxBPLength = 20

// DailyRecord is one patient's observations for one calendar date. There is
// at most one record per (patient, date).
type DailyRecord struct {
	ID          int64
	PatientID   int64
	Date        time.Time
	Weight      *float64
	BPSystolic  *int
	BPDiastolic *int
	// BP is the reading exactly as entered and is what carers see.
	BP    *string
	Notes *string
}

// View is the canonical JSON form of a record.
type View struct {
	ID        int64    `json:"id"`
	PatientID int64    `json:"patient_id"`
	Date      string   `json:"date"`
	Weight    *float64 `json:"weight"`
	BP        *string  `json:"bp"`
	Notes     *string  `json:"notes"`
}

// DisplayBP returns the entered reading, or "systolic/diastolic" when only
// the parsed figures exist and both are non-zero.
func (r *DailyRecord) DisplayBP() *string {
	if r.BP != nil && *r.BP != "" {
		return r.BP
	}
	if r.BPSystolic != nil && r.BPDiastolic != nil && *r.BPSystolic != 0 && *r.BPDiastolic != 0 {
		s := fmt.Sprintf("%d/%d", *r.BPSystolic, *r.BPDiastolic)
		return &s
	}
	return nil
}

func (r *DailyRecord) View() View {
	return View{
		ID:        r.ID,
		PatientID: r.PatientID,
		Date:      r.Date.Format(clock.DateLayout),
		Weight:    r.Weight,
		BP:        r.DisplayBP(),
		Notes:     r.Notes,
	}
}

// Reading is a parsed blood pressure entry. Raw is nil when no reading was
// given.
type Reading struct {
	Raw       *string
	Systolic  *int
	Diastolic *int
}

// ParseBP splits "systolic/diastolic". Each side becomes a number only when
// it is all ASCII digits; without a separator the whole value is tried as
// the systolic figure. Raw always keeps the input verbatim.
func ParseBP(raw string) Reading {
	r := Reading{Raw: &raw}
	if strings.Contains(raw, "/") {
		parts := strings.Split(raw, "/")
		r.Systolic = parseDigits(parts[0])
		if len(parts) > 1 {
			r.Diastolic = parseDigits(parts[1])
		}
		return r
	}
	r.Systolic = parseDigits(raw)
	return r
}

// parseDigits returns nil unless s is a non-empty run of ASCII digits that
// fits the integer columns.
func parseDigits(s string) *int {
	if s == "" {
		return nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil
	}
	v := int(n)
	return &v
}
