package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

type BreakRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type GenerateScheduleRequest struct {
	DoctorID        string       `json:"doctor_id"`
	WindowStart     time.Time    `json:"window_start"`
	WindowEnd       time.Time    `json:"window_end"`
	IntervalMinutes int          `json:"interval_minutes"`
	Breaks          []BreakRange `json:"breaks"`
}

type GenerateScheduleResponse struct {
	CreatedCount int         `json:"created_count"`
	SlotIDs      []uuid.UUID `json:"slot_ids"`
}

type VisitDetailsPayload struct {
	ReasonForVisit    string  `json:"reason_for_visit"`
	PreviousTreatment bool    `json:"previous_treatment"`
	AdditionalNotes   *string `json:"additional_notes,omitempty"`
}

type BookRequest struct {
	PatientID string              `json:"patient_id"`
	Details   VisitDetailsPayload `json:"details"`
}

type CancelRequest struct {
	PatientID string `json:"patient_id"`
}

type UpdateSlotRequest struct {
	DoctorID  *string    `json:"doctor_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    *string    `json:"status,omitempty"`
}

type SlotResponse struct {
	ID        uuid.UUID            `json:"id"`
	DoctorID  uuid.UUID            `json:"doctor_id"`
	PatientID *uuid.UUID           `json:"patient_id,omitempty"`
	StartTime time.Time            `json:"start_time"`
	EndTime   time.Time            `json:"end_time"`
	Status    string               `json:"status"`
	Details   *VisitDetailsPayload `json:"details,omitempty"`
}

func toSlotResponse(s *schedule.Slot) SlotResponse {
	resp := SlotResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		PatientID: s.PatientID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Status:    string(s.Status),
	}
	if s.Details != nil {
		resp.Details = &VisitDetailsPayload{
			ReasonForVisit:    s.Details.ReasonForVisit,
			PreviousTreatment: s.Details.PreviousTreatment,
			AdditionalNotes:   s.Details.AdditionalNotes,
		}
	}
	return resp
}

func toSlotResponses(slots []schedule.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, toSlotResponse(&slots[i]))
	}
	return out
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Specialty *string   `json:"specialty,omitempty"`
	IsActive  bool      `json:"is_active"`
}

type UpdateDoctorRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type AddHistoryRequest struct {
	DoctorID        string   `json:"doctor_id"`
	SlotID          string   `json:"slot_id"`
	Diagnosis       string   `json:"diagnosis"`
	Recommendations []string `json:"recommendations"`
	TreatmentNotes  string   `json:"treatment_notes"`
}

type HistoryEntryResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	SlotID          uuid.UUID `json:"slot_id"`
	Diagnosis       string    `json:"diagnosis"`
	Recommendations []string  `json:"recommendations"`
	TreatmentNotes  string    `json:"treatment_notes"`
	RecordedAt      time.Time `json:"recorded_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
