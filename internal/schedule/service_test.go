package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(store Store, doctorIDs ...uuid.UUID) *Service {
	active := make(map[uuid.UUID]bool, len(doctorIDs))
	for _, id := range doctorIDs {
		active[id] = true
	}
	return NewService(store, &staticDirectory{active: active})
}

func seedSlot(t *testing.T, store Store, doctorID uuid.UUID, start time.Time, status SlotStatus, patientID *uuid.UUID) uuid.UUID {
	t.Helper()
	slot := Slot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		StartTime: start,
		EndTime:   start.Add(15 * time.Minute),
		Status:    status,
	}
	if patientID != nil {
		slot.Details = &VisitDetails{ReasonForVisit: "follow-up visit"}
	}
	_, err := store.InsertMany(context.Background(), []Slot{slot})
	require.NoError(t, err)
	return slot.ID
}

func futureStart() time.Time {
	return time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
}

func TestBook_Success(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	slotID := seedSlot(t, store, doctorID, futureStart(), StatusAvailable, nil)
	patientID := uuid.New()

	slot, err := svc.Book(context.Background(), slotID, patientID, VisitDetails{
		ReasonForVisit: "persistent headaches",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusBooked, slot.Status)
	require.NotNil(t, slot.PatientID)
	assert.Equal(t, patientID, *slot.PatientID)
	require.NotNil(t, slot.Details)
	assert.Equal(t, "persistent headaches", slot.Details.ReasonForVisit)
}

func TestBook_AlreadyBooked(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	slotID := seedSlot(t, store, doctorID, futureStart(), StatusAvailable, nil)

	_, err := svc.Book(context.Background(), slotID, uuid.New(), VisitDetails{ReasonForVisit: "first booking"})
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), slotID, uuid.New(), VisitDetails{ReasonForVisit: "second booking"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBook_UnknownSlot(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)

	_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), VisitDetails{ReasonForVisit: "no such slot"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBook_AtMostOneWinnerUnderConcurrency(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	slotID := seedSlot(t, store, doctorID, futureStart(), StatusAvailable, nil)

	const callers = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []uuid.UUID
	losses := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			patientID := uuid.New()
			_, err := svc.Book(context.Background(), slotID, patientID, VisitDetails{
				ReasonForVisit: "concurrent booking",
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, patientID)
			} else if assert.ErrorIs(t, err, ErrSlotUnavailable) {
				losses++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one booking must succeed")
	assert.Equal(t, callers-1, losses)

	slot, err := store.FindOne(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, slot.Status)
	require.NotNil(t, slot.PatientID)
	assert.Equal(t, winners[0], *slot.PatientID)
}

func TestCancel_Success(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	patientID := uuid.New()
	start := time.Now().UTC().Add(25 * time.Hour)
	slotID := seedSlot(t, store, doctorID, start, StatusBooked, &patientID)

	err := svc.Cancel(context.Background(), slotID, patientID)
	require.NoError(t, err)

	slot, err := store.FindOne(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, slot.Status)
	assert.Nil(t, slot.PatientID)
	assert.Nil(t, slot.Details)
}

func TestCancel_WindowExpired(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	patientID := uuid.New()
	start := time.Now().UTC().Add(23 * time.Hour)
	slotID := seedSlot(t, store, doctorID, start, StatusBooked, &patientID)

	err := svc.Cancel(context.Background(), slotID, patientID)
	assert.ErrorIs(t, err, ErrCancellationWindowExpired)
}

func TestCancel_NotOwner(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	owner := uuid.New()
	// Inside the 24h window too: ownership is checked first, so the
	// caller learns NotOwner regardless of timing.
	start := time.Now().UTC().Add(2 * time.Hour)
	slotID := seedSlot(t, store, doctorID, start, StatusBooked, &owner)

	err := svc.Cancel(context.Background(), slotID, uuid.New())
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestCancel_UnknownSlot(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)

	err := svc.Cancel(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestCancel_ThenRebookByDifferentPatient(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	first := uuid.New()
	start := time.Now().UTC().Add(72 * time.Hour)
	slotID := seedSlot(t, store, doctorID, start, StatusBooked, &first)

	require.NoError(t, svc.Cancel(context.Background(), slotID, first))

	second := uuid.New()
	slot, err := svc.Book(context.Background(), slotID, second, VisitDetails{ReasonForVisit: "new patient visit"})
	require.NoError(t, err)

	require.NotNil(t, slot.PatientID)
	assert.Equal(t, second, *slot.PatientID)
	assert.Equal(t, StatusBooked, slot.Status)
}

func TestComplete_TransitionsBookedSlot(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	patientID := uuid.New()
	slotID := seedSlot(t, store, doctorID, futureStart(), StatusBooked, &patientID)

	slot, err := svc.Complete(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, slot.Status)
	require.NotNil(t, slot.PatientID)

	// Completing twice fails: the slot is no longer booked.
	_, err = svc.Complete(context.Background(), slotID)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestHasCollision(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	start := mustTime(t, "2026-03-02T09:00:00Z")
	slotID := seedSlot(t, store, doctorID, start, StatusAvailable, nil)

	// Overlapping range collides.
	conflict, err := svc.HasCollision(context.Background(),
		doctorID, mustTime(t, "2026-03-02T09:10:00Z"), mustTime(t, "2026-03-02T09:20:00Z"), nil)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, slotID, conflict.ID)

	// Excluding the slot itself clears the collision.
	conflict, err = svc.HasCollision(context.Background(),
		doctorID, mustTime(t, "2026-03-02T09:10:00Z"), mustTime(t, "2026-03-02T09:20:00Z"), &slotID)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	// Back-to-back range does not collide.
	conflict, err = svc.HasCollision(context.Background(),
		doctorID, mustTime(t, "2026-03-02T09:15:00Z"), mustTime(t, "2026-03-02T09:30:00Z"), nil)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestUpdate_RescheduleConflict(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	seedSlot(t, store, doctorID, mustTime(t, "2026-03-02T09:00:00Z"), StatusAvailable, nil)
	slotID := seedSlot(t, store, doctorID, mustTime(t, "2026-03-02T10:00:00Z"), StatusAvailable, nil)

	newStart := mustTime(t, "2026-03-02T09:05:00Z")
	newEnd := mustTime(t, "2026-03-02T09:20:00Z")
	_, err := svc.Update(context.Background(), slotID, UpdateRequest{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})

	assert.ErrorIs(t, err, ErrSchedulingConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, mustTime(t, "2026-03-02T09:00:00Z"), conflict.Start)
	assert.Equal(t, mustTime(t, "2026-03-02T09:15:00Z"), conflict.End)
}

func TestUpdate_DefaultsToCurrentValues(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	slotID := seedSlot(t, store, doctorID, mustTime(t, "2026-03-02T09:00:00Z"), StatusAvailable, nil)

	// Moving only the start keeps the current end; the result must stay
	// a valid interval.
	newStart := mustTime(t, "2026-03-02T09:05:00Z")
	slot, err := svc.Update(context.Background(), slotID, UpdateRequest{StartTime: &newStart})
	require.NoError(t, err)
	assert.Equal(t, newStart, slot.StartTime)
	assert.Equal(t, mustTime(t, "2026-03-02T09:15:00Z"), slot.EndTime)

	// Pushing the start past the current end is rejected.
	badStart := mustTime(t, "2026-03-02T09:30:00Z")
	_, err = svc.Update(context.Background(), slotID, UpdateRequest{StartTime: &badStart})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestUpdate_ReassignDoctor(t *testing.T) {
	store := NewMemoryStore()
	doctorA := uuid.New()
	doctorB := uuid.New()
	svc := newTestService(store, doctorA, doctorB)

	slotID := seedSlot(t, store, doctorA, mustTime(t, "2026-03-02T09:00:00Z"), StatusAvailable, nil)

	// Doctor B already works 09:00-09:15: reassignment collides.
	seedSlot(t, store, doctorB, mustTime(t, "2026-03-02T09:00:00Z"), StatusAvailable, nil)

	_, err := svc.Update(context.Background(), slotID, UpdateRequest{DoctorID: &doctorB})
	assert.ErrorIs(t, err, ErrSchedulingConflict)

	// Moving the slot to a free range for doctor B succeeds.
	newStart := mustTime(t, "2026-03-02T11:00:00Z")
	newEnd := mustTime(t, "2026-03-02T11:15:00Z")
	slot, err := svc.Update(context.Background(), slotID, UpdateRequest{
		DoctorID:  &doctorB,
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, doctorB, slot.DoctorID)
}

func TestUpdate_ReassignBookedSlotRejected(t *testing.T) {
	store := NewMemoryStore()
	doctorA := uuid.New()
	doctorB := uuid.New()
	svc := newTestService(store, doctorA, doctorB)

	patientID := uuid.New()
	slotID := seedSlot(t, store, doctorA, futureStart(), StatusBooked, &patientID)

	_, err := svc.Update(context.Background(), slotID, UpdateRequest{DoctorID: &doctorB})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestUpdate_ReassignToInactiveDoctorRejected(t *testing.T) {
	store := NewMemoryStore()
	doctorA := uuid.New()
	svc := newTestService(store, doctorA)

	slotID := seedSlot(t, store, doctorA, futureStart(), StatusAvailable, nil)

	unknown := uuid.New()
	_, err := svc.Update(context.Background(), slotID, UpdateRequest{DoctorID: &unknown})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestUpdate_StatusToAvailableClearsPatient(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	patientID := uuid.New()
	slotID := seedSlot(t, store, doctorID, futureStart(), StatusBooked, &patientID)

	available := StatusAvailable
	slot, err := svc.Update(context.Background(), slotID, UpdateRequest{Status: &available})
	require.NoError(t, err)

	assert.Equal(t, StatusAvailable, slot.Status)
	assert.Nil(t, slot.PatientID)
	assert.Nil(t, slot.Details)
}

func TestUpdate_StatusWithoutPatientRejected(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	slotID := seedSlot(t, store, doctorID, futureStart(), StatusAvailable, nil)

	for _, status := range []SlotStatus{StatusBooked, StatusCompleted} {
		s := status
		_, err := svc.Update(context.Background(), slotID, UpdateRequest{Status: &s})
		assert.ErrorIs(t, err, ErrPatientRequired)
	}

	// The slot is untouched after the rejected updates.
	slot, err := store.FindOne(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, slot.Status)
	assert.Nil(t, slot.PatientID)

	// A completed slot keeps its patient, so moving it back to booked
	// stays legal.
	patientID := uuid.New()
	completedID := seedSlot(t, store, doctorID, futureStart().Add(time.Hour), StatusCompleted, &patientID)
	booked := StatusBooked
	updated, err := svc.Update(context.Background(), completedID, UpdateRequest{Status: &booked})
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, updated.Status)
	require.NotNil(t, updated.PatientID)
}

func TestUpdate_UnknownSlot(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)

	_, err := svc.Update(context.Background(), uuid.New(), UpdateRequest{})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestDelete(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()
	svc := newTestService(store, doctorID)

	slotID := seedSlot(t, store, doctorID, futureStart(), StatusAvailable, nil)

	require.NoError(t, svc.Delete(context.Background(), slotID))
	assert.ErrorIs(t, svc.Delete(context.Background(), slotID), ErrSlotNotFound)
}
