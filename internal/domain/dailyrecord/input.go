package dailyrecord

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elderease/elderease/internal/platform/apierr"
	"github.com/elderease/elderease/internal/platform/clock"
)

// UpsertRequest is the raw body of POST /daily/record. Fields stay
// undecoded because clients send numbers and strings interchangeably.
type UpsertRequest struct {
	PatientID json.RawMessage `json:"patient_id"`
	Date      json.RawMessage `json:"date"`
	Weight    json.RawMessage `json:"weight"`
	BP        json.RawMessage `json:"bp"`
	Notes     json.RawMessage `json:"notes"`
}

// UpsertInput is a validated daily record submission.
type UpsertInput struct {
	PatientID int64
	Date      time.Time
	// Weight is nil when the caller sent none, zero or an empty value.
	Weight *float64
	BP     Reading
	Notes  *string
}

// Parse coerces the request into typed input. Dates are read in today's
// location and default to today. Every failure is an apierr validation
// error.
func (r UpsertRequest) Parse(today time.Time) (UpsertInput, error) {
	var in UpsertInput

	id, ok := scalar(r.PatientID)
	if !ok {
		return in, apierr.Invalid("patient_id must be an integer")
	}
	if id.falsy() {
		return in, apierr.Invalid("patient_id required")
	}
	pid, err := parseID(id.text)
	if err != nil {
		return in, apierr.Invalid("patient_id must be a positive integer")
	}
	in.PatientID = pid

	in.Date = clock.Day(today)
	if !isNull(r.Date) {
		var s string
		if err := json.Unmarshal(r.Date, &s); err != nil {
			return in, apierr.Invalid("Invalid date format")
		}
		d, err := clock.ParseDate(s, today.Location())
		if err != nil {
			return in, apierr.Invalid("Invalid date format")
		}
		in.Date = d
	}

	w, ok := scalar(r.Weight)
	if !ok {
		return in, apierr.Invalid("weight must be a number")
	}
	if !w.falsy() {
		f, err := strconv.ParseFloat(strings.TrimSpace(w.text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return in, apierr.Invalid("weight must be a number")
		}
		if f < 0 {
			return in, apierr.Invalid("weight must not be negative")
		}
		if f != 0 {
			in.Weight = &f
		}
	}

	bp, ok := scalar(r.BP)
	if !ok {
		return in, apierr.Invalid("bp must be a string or number")
	}
	if !bp.falsy() {
		if utf8.RuneCountInString(bp.text) > MaxBPLength {
			return in, apierr.Invalid("bp must be at most %d characters", MaxBPLength)
		}
		in.BP = ParseBP(bp.text)
	}

	if !isNull(r.Notes) {
		var s string
		if err := json.Unmarshal(r.Notes, &s); err != nil {
			return in, apierr.Invalid("notes must be a string")
		}
		in.Notes = &s
	}

	return in, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// scalarValue is a JSON string's value or a JSON number's literal text.
type scalarValue struct {
	text   string
	number bool
}

// falsy reports an absent value, an empty string or a numeric zero.
func (v scalarValue) falsy() bool {
	if v.text == "" {
		return true
	}
	if !v.number {
		return false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	return err == nil && f == 0
}

// scalar decodes a string or number. Absent and null values decode to the
// zero scalarValue; objects, arrays and booleans report false.
func scalar(raw json.RawMessage) (scalarValue, bool) {
	if isNull(raw) {
		return scalarValue{}, true
	}
	t := bytes.TrimSpace(raw)
	switch {
	case t[0] == '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return scalarValue{}, false
		}
		return scalarValue{text: s}, true
	case t[0] == '-' || (t[0] >= '0' && t[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(t, &n); err != nil {
			return scalarValue{}, false
		}
		return scalarValue{text: n.String(), number: true}, true
	}
	return scalarValue{}, false
}

// parseID accepts "12", " 12 " and integral numbers such as 12.0.
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, strconv.ErrRange
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 || f != math.Trunc(f) || f > 1<<53 {
		return 0, strconv.ErrRange
	}
	return int64(f), nil
}
