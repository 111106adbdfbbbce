package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound = errors.New("slot not found")

	// ErrNotApplied is returned by ConditionalUpdate when the slot exists
	// but its status did not match the expected one, or when the slot is
	// absent. Callers translate it into their own error kinds.
	ErrNotApplied = errors.New("conditional update not applied")
)

// Store owns the slot collection. It is the only component that touches
// slot state; the generator and coordinator re-read through it on every
// call. ConditionalUpdate is the single operation that must be atomic:
// predicate and patch apply as one indivisible write.
type Store interface {
	FindOne(ctx context.Context, id uuid.UUID) (*Slot, error)

	// FindByDoctorAndRange returns every slot for the doctor whose
	// interval overlaps [start, end), regardless of status.
	FindByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]Slot, error)

	// FindOverlapping is FindByDoctorAndRange with an optional excluded
	// slot id, used by collision checks on reschedule.
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Slot, error)

	InsertMany(ctx context.Context, slots []Slot) ([]uuid.UUID, error)

	// ConditionalUpdate applies patch only if the slot's current status
	// equals expected, returning ErrNotApplied otherwise.
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expected SlotStatus, patch SlotPatch) (*Slot, error)

	UpdateUnconditional(ctx context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error)

	// Delete removes the slot, reporting whether it existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Read surface for the HTTP layer.
	ListAvailable(ctx context.Context, limit int) ([]Slot, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]Slot, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Slot, error)

	// DeleteExpiredAvailable removes available slots whose end time is
	// before cutoff. Used by the sweeper.
	DeleteExpiredAvailable(ctx context.Context, cutoff time.Time) (int64, error)
}
