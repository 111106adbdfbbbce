package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CancellationNotice is how far ahead of the visit a patient must cancel.
const CancellationNotice = 24 * time.Hour

var (
	ErrSlotUnavailable           = errors.New("slot is already taken or does not exist")
	ErrNotOwner                  = errors.New("slot belongs to a different patient")
	ErrCancellationWindowExpired = errors.New("visits can only be cancelled more than 24 hours in advance")
	ErrSchedulingConflict        = errors.New("doctor already has a visit in this time range")

	// ErrPatientRequired rejects a status change to booked or completed
	// on a slot that carries no patient.
	ErrPatientRequired = errors.New("status booked or completed requires a patient")
)

// ConflictError carries the conflicting slot's interval for display.
type ConflictError struct {
	Start time.Time
	End   time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("doctor already has a visit between %s and %s",
		e.Start.Format("15:04"), e.End.Format("15:04"))
}

func (e *ConflictError) Unwrap() error { return ErrSchedulingConflict }

// Service coordinates slot mutations. Every operation re-reads current
// state from the store; nothing is cached across calls.
type Service struct {
	store     Store
	directory DoctorDirectory
}

func NewService(store Store, directory DoctorDirectory) *Service {
	return &Service{
		store:     store,
		directory: directory,
	}
}

// Book reserves an available slot for a patient. The status predicate
// and the patch are a single conditional update, so among any set of
// concurrent Book calls on one slot at most one succeeds; the rest get
// ErrSlotUnavailable.
func (s *Service) Book(ctx context.Context, slotID, patientID uuid.UUID, details VisitDetails) (*Slot, error) {
	booked := StatusBooked
	slot, err := s.store.ConditionalUpdate(ctx, slotID, StatusAvailable, SlotPatch{
		Status:    &booked,
		PatientID: &patientID,
		Details:   &details,
	})
	if err != nil {
		if errors.Is(err, ErrNotApplied) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("book slot: %w", err)
	}
	return slot, nil
}

// Cancel releases a booked slot back to available, clearing the patient
// and visit details. Only the booking owner may cancel, and only more
// than 24 hours before the visit starts. The ownership read is advisory:
// a cancel racing a concurrent cancel-then-rebook of the same slot can
// release the new booking. The conditional update still guarantees the
// slot is booked when it flips.
func (s *Service) Cancel(ctx context.Context, slotID, patientID uuid.UUID) error {
	slot, err := s.store.FindOne(ctx, slotID)
	if err != nil {
		return err
	}

	if slot.PatientID == nil || *slot.PatientID != patientID {
		return ErrNotOwner
	}

	if time.Now().UTC().Add(CancellationNotice).After(slot.StartTime) {
		return ErrCancellationWindowExpired
	}

	available := StatusAvailable
	_, err = s.store.ConditionalUpdate(ctx, slotID, StatusBooked, SlotPatch{
		Status:       &available,
		ClearPatient: true,
		ClearDetails: true,
	})
	if err != nil {
		if errors.Is(err, ErrNotApplied) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("cancel slot: %w", err)
	}
	return nil
}

// Complete marks a booked slot as completed. Triggered by the medical
// history subsystem when the doctor files a visit record.
func (s *Service) Complete(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	completed := StatusCompleted
	slot, err := s.store.ConditionalUpdate(ctx, slotID, StatusBooked, SlotPatch{
		Status: &completed,
	})
	if err != nil {
		if errors.Is(err, ErrNotApplied) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("complete slot: %w", err)
	}
	return slot, nil
}

// HasCollision reports the first slot of the doctor, other than
// excludeID, overlapping [start, end). Shared by the generator's update
// path and administrative reschedules.
func (s *Service) HasCollision(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Slot, error) {
	overlapping, err := s.store.FindOverlapping(ctx, doctorID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("check collision: %w", err)
	}
	if len(overlapping) == 0 {
		return nil, nil
	}
	return &overlapping[0], nil
}

// UpdateRequest is an administrative partial edit. Absent fields keep
// their current values.
type UpdateRequest struct {
	DoctorID  *uuid.UUID
	StartTime *time.Time
	EndTime   *time.Time
	Status    *SlotStatus
}

// Update applies an administrative reschedule. The effective doctor,
// start and end default to current values; if any of them is supplied
// the result is collision-checked against the doctor's other slots
// before the patch is applied.
func (s *Service) Update(ctx context.Context, slotID uuid.UUID, req UpdateRequest) (*Slot, error) {
	current, err := s.store.FindOne(ctx, slotID)
	if err != nil {
		return nil, err
	}

	effDoctor := current.DoctorID
	if req.DoctorID != nil {
		effDoctor = *req.DoctorID
	}
	effStart := current.StartTime
	if req.StartTime != nil {
		effStart = req.StartTime.UTC()
	}
	effEnd := current.EndTime
	if req.EndTime != nil {
		effEnd = req.EndTime.UTC()
	}

	if !effStart.Before(effEnd) {
		return nil, ErrInvalidWindow
	}

	// A booked or completed slot always carries a patient; the patch
	// cannot supply one, so the slot must already have it.
	if req.Status != nil && *req.Status != StatusAvailable && current.PatientID == nil {
		return nil, ErrPatientRequired
	}

	if req.DoctorID != nil && *req.DoctorID != current.DoctorID {
		// Reassignment is only allowed while the slot is unbooked, and
		// the new doctor must be active.
		if current.Status != StatusAvailable {
			return nil, ErrSlotUnavailable
		}
		active, err := s.directory.DoctorActive(ctx, *req.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("check doctor: %w", err)
		}
		if !active {
			return nil, ErrDoctorNotFound
		}
	}

	if req.DoctorID != nil || req.StartTime != nil || req.EndTime != nil {
		conflict, err := s.HasCollision(ctx, effDoctor, effStart, effEnd, &slotID)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, &ConflictError{Start: conflict.StartTime, End: conflict.EndTime}
		}
	}

	patch := SlotPatch{
		DoctorID:  req.DoctorID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
	}
	if req.Status != nil && *req.Status == StatusAvailable {
		// An available slot never carries a patient or visit details.
		patch.ClearPatient = true
		patch.ClearDetails = true
	}

	updated, err := s.store.UpdateUnconditional(ctx, slotID, patch)
	if err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}
	return updated, nil
}

// Delete removes a slot outright.
func (s *Service) Delete(ctx context.Context, slotID uuid.UUID) error {
	existed, err := s.store.Delete(ctx, slotID)
	if err != nil {
		return err
	}
	if !existed {
		return ErrSlotNotFound
	}
	return nil
}
