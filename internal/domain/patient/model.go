package patient

import (
	"time"

	"github.com/elderease/elderease/internal/platform/clock"
)

// Patient is a person under care. Patients are never updated; they leave
// only through cascading deletes.
type Patient struct {
	ID             int64
	Name           string
	Age            int
	Gender         string
	ChiefComplaint *string
	DateOfJoining  time.Time
	CreatedAt      time.Time
}

// Summary is the list and report view of a patient.
type Summary struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Age            int     `json:"age"`
	Gender         string  `json:"gender"`
	ChiefComplaint *string `json:"chief_complaint"`
}

// Detail adds the joining date to Summary.
type Detail struct {
	Summary
	DateOfJoining *string `json:"date_of_joining"`
}

// Brief is the dashboard view of a patient awaiting a health update.
type Brief struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

func (p *Patient) Summary() Summary {
	return Summary{
		ID:             p.ID,
		Name:           p.Name,
		Age:            p.Age,
		Gender:         p.Gender,
		ChiefComplaint: p.ChiefComplaint,
	}
}

func (p *Patient) Detail() Detail {
	d := Detail{Summary: p.Summary()}
	if !p.DateOfJoining.IsZero() {
		s := p.DateOfJoining.Format(clock.DateLayout)
		d.DateOfJoining = &s
	}
	return d
}

func (p *Patient) Brief() Brief {
	return Brief{ID: p.ID, Name: p.Name, Age: p.Age, Gender: p.Gender}
}
