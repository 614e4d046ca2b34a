package dailyrecord

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/elderease/elderease/internal/platform/apierr"
)

var today = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func parse(t *testing.T, body string) (UpsertInput, error) {
	t.Helper()
	var req UpsertRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("bad test body %s: %v", body, err)
	}
	return req.Parse(today)
}

func TestParse_Full(t *testing.T) {
	in, err := parse(t, `{"patient_id":3,"date":"2024-01-01","weight":70.5,"bp":"120/80","notes":"ate well"}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.PatientID != 3 {
		t.Errorf("patient id = %d", in.PatientID)
	}
	if !in.Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", in.Date)
	}
	if in.Weight == nil || *in.Weight != 70.5 {
		t.Errorf("weight = %v", in.Weight)
	}
	if *in.BP.Raw != "120/80" || *in.BP.Systolic != 120 || *in.BP.Diastolic != 80 {
		t.Errorf("bp = %+v", in.BP)
	}
	if in.Notes == nil || *in.Notes != "ate well" {
		t.Errorf("notes = %v", in.Notes)
	}
}

func TestParse_Defaults(t *testing.T) {
	in, err := parse(t, `{"patient_id":"7"}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.PatientID != 7 || !in.Date.Equal(today) {
		t.Errorf("unexpected input %+v", in)
	}
	if in.Weight != nil || in.BP.Raw != nil || in.Notes != nil {
		t.Errorf("optional fields should be absent: %+v", in)
	}
}

func TestParse_FalsyValuesAreAbsent(t *testing.T) {
	for _, body := range []string{
		`{"patient_id":1,"weight":0,"bp":0}`,
		`{"patient_id":1,"weight":"","bp":""}`,
		`{"patient_id":1,"weight":null,"bp":null}`,
	} {
		in, err := parse(t, body)
		if err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if in.Weight != nil || in.BP.Raw != nil {
			t.Errorf("%s: expected weight and bp absent, got %+v", body, in)
		}
	}
}

func TestParse_NumericBP(t *testing.T) {
	in, err := parse(t, `{"patient_id":1,"bp":130}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if *in.BP.Raw != "130" || *in.BP.Systolic != 130 || in.BP.Diastolic != nil {
		t.Errorf("bp = %+v", in.BP)
	}

	in, _ = parse(t, `{"patient_id":1,"bp":"0"}`)
	if in.BP.Raw == nil || *in.BP.Raw != "0" {
		t.Errorf("the string \"0\" is a reading, got %+v", in.BP)
	}
}

func TestParse_StringWeight(t *testing.T) {
	in, err := parse(t, `{"patient_id":1,"weight":" 64.2 "}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Weight == nil || *in.Weight != 64.2 {
		t.Errorf("weight = %v", in.Weight)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		body string
		msg  string
	}{
		{`{}`, "patient_id required"},
		{`{"patient_id":null}`, "patient_id required"},
		{`{"patient_id":0}`, "patient_id required"},
		{`{"patient_id":""}`, "patient_id required"},
		{`{"patient_id":"abc"}`, "patient_id must be a positive integer"},
		{`{"patient_id":1.5}`, "patient_id must be a positive integer"},
		{`{"patient_id":-4}`, "patient_id must be a positive integer"},
		{`{"patient_id":true}`, "patient_id must be an integer"},
		{`{"patient_id":1,"date":"01/01/2024"}`, "Invalid date format"},
		{`{"patient_id":1,"date":""}`, "Invalid date format"},
		{`{"patient_id":1,"date":20240101}`, "Invalid date format"},
		{`{"patient_id":1,"weight":"heavy"}`, "weight must be a number"},
		{`{"patient_id":1,"weight":"NaN"}`, "weight must be a number"},
		{`{"patient_id":1,"weight":-3}`, "weight must not be negative"},
		{`{"patient_id":1,"weight":[70]}`, "weight must be a number"},
		{`{"patient_id":1,"bp":{"s":120}}`, "bp must be a string or number"},
		{`{"patient_id":1,"bp":"` + strings.Repeat("1", 21) + `"}`, "bp must be at most 20 characters"},
		{`{"patient_id":1,"notes":42}`, "notes must be a string"},
	}
	for _, tt := range tests {
		_, err := parse(t, tt.body)
		if !apierr.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tt.body, err)
			continue
		}
		if err.Error() != tt.msg {
			t.Errorf("%s: message = %q, want %q", tt.body, err.Error(), tt.msg)
		}
	}
}

func TestParse_IntegralFloatPatientID(t *testing.T) {
	in, err := parse(t, `{"patient_id":4.0}`)
	if err != nil || in.PatientID != 4 {
		t.Fatalf("expected patient 4, got %d, %v", in.PatientID, err)
	}
}
