package history

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

type fakeRepo struct {
	entries []Entry
	insErr  error
}

func (r *fakeRepo) Insert(_ context.Context, e Entry) (*Entry, error) {
	if r.insErr != nil {
		return nil, r.insErr
	}
	r.entries = append(r.entries, e)
	cp := e
	return &cp, nil
}

func (r *fakeRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]Entry, error) {
	var result []Entry
	for _, e := range r.entries {
		if e.PatientID == patientID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RecordedAt.After(result[j].RecordedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type allowAllDirectory struct{}

func (allowAllDirectory) DoctorExists(context.Context, uuid.UUID) (bool, error) { return true, nil }
func (allowAllDirectory) DoctorActive(context.Context, uuid.UUID) (bool, error) { return true, nil }

func seedBookedSlot(t *testing.T, store *schedule.MemoryStore, doctorID, patientID uuid.UUID) uuid.UUID {
	t.Helper()
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Minute)
	slot := schedule.Slot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: &patientID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    schedule.StatusBooked,
	}
	_, err := store.InsertMany(context.Background(), []schedule.Slot{slot})
	require.NoError(t, err)
	return slot.ID
}

func newTestService(repo Repository, store *schedule.MemoryStore) *Service {
	coord := schedule.NewService(store, allowAllDirectory{})
	return NewService(repo, store, coord)
}

func TestAddEntry_FilesRecordAndCompletesSlot(t *testing.T) {
	store := schedule.NewMemoryStore()
	repo := &fakeRepo{}
	svc := newTestService(repo, store)

	doctorID := uuid.New()
	patientID := uuid.New()
	slotID := seedBookedSlot(t, store, doctorID, patientID)

	entry, err := svc.AddEntry(context.Background(), AddEntryRequest{
		DoctorID:        doctorID,
		SlotID:          slotID,
		Diagnosis:       "seasonal allergies",
		Recommendations: []string{"antihistamine", "follow up in 2 weeks"},
		TreatmentNotes:  "mild symptoms",
	})
	require.NoError(t, err)
	assert.Equal(t, patientID, entry.PatientID)
	assert.Equal(t, "seasonal allergies", entry.Diagnosis)
	assert.False(t, entry.RecordedAt.IsZero())

	slot, err := store.FindOne(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, slot.Status)
}

func TestAddEntry_WrongDoctor(t *testing.T) {
	store := schedule.NewMemoryStore()
	svc := newTestService(&fakeRepo{}, store)

	slotID := seedBookedSlot(t, store, uuid.New(), uuid.New())

	_, err := svc.AddEntry(context.Background(), AddEntryRequest{
		DoctorID:  uuid.New(),
		SlotID:    slotID,
		Diagnosis: "nope",
	})
	assert.ErrorIs(t, err, ErrSlotNotOwned)
}

func TestAddEntry_SlotWithoutPatient(t *testing.T) {
	store := schedule.NewMemoryStore()
	svc := newTestService(&fakeRepo{}, store)

	doctorID := uuid.New()
	start := time.Now().UTC().Add(time.Hour)
	slot := schedule.Slot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    schedule.StatusAvailable,
	}
	_, err := store.InsertMany(context.Background(), []schedule.Slot{slot})
	require.NoError(t, err)

	_, err = svc.AddEntry(context.Background(), AddEntryRequest{
		DoctorID:  doctorID,
		SlotID:    slot.ID,
		Diagnosis: "no patient present",
	})
	assert.ErrorIs(t, err, schedule.ErrSlotUnavailable)
}

func TestAddEntry_UnknownSlot(t *testing.T) {
	svc := newTestService(&fakeRepo{}, schedule.NewMemoryStore())

	_, err := svc.AddEntry(context.Background(), AddEntryRequest{
		DoctorID:  uuid.New(),
		SlotID:    uuid.New(),
		Diagnosis: "x",
	})
	assert.ErrorIs(t, err, schedule.ErrSlotNotFound)
}

// A second record for the same slot finds it already completed. The
// record still files; the failed transition is tolerated.
func TestAddEntry_SecondRecordForCompletedSlot(t *testing.T) {
	store := schedule.NewMemoryStore()
	repo := &fakeRepo{}
	svc := newTestService(repo, store)

	doctorID := uuid.New()
	slotID := seedBookedSlot(t, store, doctorID, uuid.New())

	req := AddEntryRequest{DoctorID: doctorID, SlotID: slotID, Diagnosis: "first visit"}
	_, err := svc.AddEntry(context.Background(), req)
	require.NoError(t, err)

	req.Diagnosis = "amended record"
	_, err = svc.AddEntry(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, repo.entries, 2)
}

func TestListByPatient_NewestFirstWithCap(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, schedule.NewMemoryStore())

	patientID := uuid.New()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		repo.entries = append(repo.entries, Entry{
			ID:         uuid.New(),
			PatientID:  patientID,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	repo.entries = append(repo.entries, Entry{ID: uuid.New(), PatientID: uuid.New(), RecordedAt: base})

	entries, err := svc.ListByPatient(context.Background(), patientID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].RecordedAt.After(entries[1].RecordedAt))
}
