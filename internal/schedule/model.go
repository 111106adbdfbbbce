package schedule

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	StatusAvailable SlotStatus = "available"
	StatusBooked    SlotStatus = "booked"
	StatusCompleted SlotStatus = "completed"
)

// VisitDetails is patient-supplied metadata attached while a slot is
// booked or completed. Stored as JSONB.
type VisitDetails struct {
	ReasonForVisit    string  `json:"reason_for_visit"`
	PreviousTreatment bool    `json:"previous_treatment"`
	AdditionalNotes   *string `json:"additional_notes,omitempty"`
}

// Slot is one bookable interval belonging to a doctor. PatientID and
// Details are non-nil exactly when Status is booked or completed.
type Slot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID *uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    SlotStatus
	Details   *VisitDetails
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the slot's time range.
func (s *Slot) Interval() Interval {
	return NewInterval(s.StartTime, s.EndTime)
}

// SlotPatch describes a partial update. Nil pointers leave the field
// untouched; the Clear flags set nullable columns back to NULL.
type SlotPatch struct {
	DoctorID     *uuid.UUID
	PatientID    *uuid.UUID
	ClearPatient bool
	StartTime    *time.Time
	EndTime      *time.Time
	Status       *SlotStatus
	Details      *VisitDetails
	ClearDetails bool
}

// IsZero reports whether the patch changes nothing.
func (p SlotPatch) IsZero() bool {
	return p.DoctorID == nil && p.PatientID == nil && !p.ClearPatient &&
		p.StartTime == nil && p.EndTime == nil && p.Status == nil &&
		p.Details == nil && !p.ClearDetails
}
