package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/slot-scheduler/internal/directory"
	"github.com/clinicdesk/slot-scheduler/internal/history"
	"github.com/clinicdesk/slot-scheduler/internal/metrics"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func generateScheduleHandler(gen *schedule.Generator, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		breaks := make([]schedule.Interval, 0, len(req.Breaks))
		for _, b := range req.Breaks {
			breaks = append(breaks, schedule.NewInterval(b.Start, b.End))
		}

		result, err := gen.Generate(r.Context(), schedule.GenerateRequest{
			DoctorID:        doctorID,
			WindowStart:     req.WindowStart,
			WindowEnd:       req.WindowEnd,
			IntervalMinutes: req.IntervalMinutes,
			Breaks:          breaks,
		})
		if err != nil {
			m.ObserveGeneration("error", 0)
			handleGenerateError(w, err)
			return
		}
		m.ObserveGeneration("ok", result.CreatedCount)

		ids := make([]uuid.UUID, 0, len(result.Slots))
		for i := range result.Slots {
			ids = append(ids, result.Slots[i].ID)
		}

		writeJSON(w, http.StatusCreated, GenerateScheduleResponse{
			CreatedCount: result.CreatedCount,
			SlotIDs:      ids,
		})
	}
}

func handleGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrNoSlotsGenerated):
		writeError(w, http.StatusBadRequest, "no_slots_generated", err.Error())
	case errors.Is(err, schedule.ErrGenerationInProgress):
		writeError(w, http.StatusConflict, "generation_in_progress", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func bookSlotHandler(svc *schedule.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseIDParam(w, r, "invalid_slot_id")
		if !ok {
			return
		}

		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		if len(req.Details.ReasonForVisit) < 5 {
			writeError(w, http.StatusBadRequest, "invalid_details", "reason_for_visit must be at least 5 characters")
			return
		}

		slot, err := svc.Book(r.Context(), slotID, patientID, schedule.VisitDetails{
			ReasonForVisit:    req.Details.ReasonForVisit,
			PreviousTreatment: req.Details.PreviousTreatment,
			AdditionalNotes:   req.Details.AdditionalNotes,
		})
		if err != nil {
			m.ObserveBooking("conflict")
			handleSlotError(w, err)
			return
		}
		m.ObserveBooking("ok")

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func cancelSlotHandler(svc *schedule.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseIDParam(w, r, "invalid_slot_id")
		if !ok {
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		if err := svc.Cancel(r.Context(), slotID, patientID); err != nil {
			m.ObserveCancellation("rejected")
			handleSlotError(w, err)
			return
		}
		m.ObserveCancellation("ok")

		writeJSON(w, http.StatusOK, map[string]string{"message": "visit cancelled"})
	}
}

func updateSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseIDParam(w, r, "invalid_slot_id")
		if !ok {
			return
		}

		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := schedule.UpdateRequest{
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		}
		if req.DoctorID != nil {
			doctorID, err := uuid.Parse(*req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			upd.DoctorID = &doctorID
		}
		if req.Status != nil {
			status := schedule.SlotStatus(*req.Status)
			switch status {
			case schedule.StatusAvailable, schedule.StatusBooked, schedule.StatusCompleted:
			default:
				writeError(w, http.StatusBadRequest, "invalid_status", "status must be available, booked, or completed")
				return
			}
			upd.Status = &status
		}

		slot, err := svc.Update(r.Context(), slotID, upd)
		if err != nil {
			handleSlotError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func deleteSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseIDParam(w, r, "invalid_slot_id")
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), slotID); err != nil {
			handleSlotError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "slot deleted"})
	}
}

func handleSlotError(w http.ResponseWriter, err error) {
	var conflict *schedule.ConflictError

	switch {
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, schedule.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, schedule.ErrCancellationWindowExpired):
		writeError(w, http.StatusBadRequest, "cancellation_window_expired", err.Error())
	case errors.Is(err, schedule.ErrPatientRequired):
		writeError(w, http.StatusBadRequest, "patient_required", err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, "scheduling_conflict", conflict.Error())
	case errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func listAvailableSlotsHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := store.ListAvailable(r.Context(), queryLimit(r, 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func listDoctorSlotsHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "invalid_doctor_id")
		if !ok {
			return
		}
		slots, err := store.ListByDoctor(r.Context(), doctorID, queryLimit(r, 500))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func listPatientSlotsHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseIDParam(w, r, "invalid_patient_id")
		if !ok {
			return
		}
		slots, err := store.ListByPatient(r.Context(), patientID, queryLimit(r, 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func listDoctorsHandler(dir *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := dir.ListActiveDoctors(r.Context(), queryLimit(r, 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			out = append(out, DoctorResponse{
				ID:        d.ID,
				Email:     d.Email,
				FullName:  d.FullName,
				Specialty: d.Specialty,
				IsActive:  d.IsActive,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getDoctorHandler(dir *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "invalid_doctor_id")
		if !ok {
			return
		}

		d, err := dir.GetDoctor(r.Context(), doctorID)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, DoctorResponse{
			ID:        d.ID,
			Email:     d.Email,
			FullName:  d.FullName,
			Specialty: d.Specialty,
			IsActive:  d.IsActive,
		})
	}
}

func updateDoctorHandler(dir *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "invalid_doctor_id")
		if !ok {
			return
		}

		var req UpdateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.FullName == "" || req.Email == "" {
			writeError(w, http.StatusBadRequest, "invalid_doctor_profile", "full_name and email are required")
			return
		}

		err := dir.UpdateDoctor(r.Context(), doctorID, directory.DoctorUpdate{
			FullName: req.FullName,
			Email:    req.Email,
		})
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "doctor updated"})
	}
}

func toggleDoctorActivityHandler(dir *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "invalid_doctor_id")
		if !ok {
			return
		}

		active, err := dir.ToggleActivity(r.Context(), doctorID)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"is_active": active})
	}
}

func handleDirectoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, directory.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func addHistoryHandler(svc *history.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddHistoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}
		if len(req.Diagnosis) < 3 {
			writeError(w, http.StatusBadRequest, "invalid_diagnosis", "diagnosis must be at least 3 characters")
			return
		}

		entry, err := svc.AddEntry(r.Context(), history.AddEntryRequest{
			DoctorID:        doctorID,
			SlotID:          slotID,
			Diagnosis:       req.Diagnosis,
			Recommendations: req.Recommendations,
			TreatmentNotes:  req.TreatmentNotes,
		})
		if err != nil {
			handleHistoryError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toHistoryResponse(entry))
	}
}

func listPatientHistoryHandler(svc *history.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseIDParam(w, r, "invalid_patient_id")
		if !ok {
			return
		}

		entries, err := svc.ListByPatient(r.Context(), patientID, queryLimit(r, 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]HistoryEntryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, toHistoryResponse(&entries[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleHistoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, history.ErrSlotNotOwned):
		writeError(w, http.StatusForbidden, "slot_not_owned", err.Error())
	case errors.Is(err, schedule.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot has no booked patient to file a record for")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toHistoryResponse(e *history.Entry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:              e.ID,
		PatientID:       e.PatientID,
		DoctorID:        e.DoctorID,
		SlotID:          e.SlotID,
		Diagnosis:       e.Diagnosis,
		Recommendations: e.Recommendations,
		TreatmentNotes:  e.TreatmentNotes,
		RecordedAt:      e.RecordedAt,
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
