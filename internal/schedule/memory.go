package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded Store for tests and the local
// simulator. ConditionalUpdate holds the lock across predicate and
// patch, giving the same atomicity as the Postgres UPDATE.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*Slot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[uuid.UUID]*Slot)}
}

func cloneSlot(s *Slot) *Slot {
	c := *s
	if s.PatientID != nil {
		pid := *s.PatientID
		c.PatientID = &pid
	}
	if s.Details != nil {
		d := *s.Details
		c.Details = &d
	}
	return &c
}

func (m *MemoryStore) FindOne(_ context.Context, id uuid.UUID) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return cloneSlot(s), nil
}

func (m *MemoryStore) FindByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]Slot, error) {
	return m.FindOverlapping(ctx, doctorID, start, end, nil)
}

func (m *MemoryStore) FindOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := NewInterval(start, end)

	var result []Slot
	for _, s := range m.slots {
		if s.DoctorID != doctorID {
			continue
		}
		if excludeID != nil && s.ID == *excludeID {
			continue
		}
		if s.Interval().Overlaps(window) {
			result = append(result, *cloneSlot(s))
		}
	}
	sortByStart(result)
	return result, nil
}

func (m *MemoryStore) InsertMany(_ context.Context, slots []Slot) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	ids := make([]uuid.UUID, 0, len(slots))
	for i := range slots {
		s := slots[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.StartTime = s.StartTime.UTC()
		s.EndTime = s.EndTime.UTC()
		s.CreatedAt = now
		s.UpdatedAt = now
		m.slots[s.ID] = cloneSlot(&s)
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func applyPatch(s *Slot, patch SlotPatch) {
	if patch.DoctorID != nil {
		s.DoctorID = *patch.DoctorID
	}
	if patch.ClearPatient {
		s.PatientID = nil
	} else if patch.PatientID != nil {
		pid := *patch.PatientID
		s.PatientID = &pid
	}
	if patch.StartTime != nil {
		s.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		s.EndTime = patch.EndTime.UTC()
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.ClearDetails {
		s.Details = nil
	} else if patch.Details != nil {
		d := *patch.Details
		s.Details = &d
	}
	s.UpdatedAt = time.Now().UTC()
}

func (m *MemoryStore) ConditionalUpdate(_ context.Context, id uuid.UUID, expected SlotStatus, patch SlotPatch) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok || s.Status != expected {
		return nil, ErrNotApplied
	}
	applyPatch(s, patch)
	return cloneSlot(s), nil
}

func (m *MemoryStore) UpdateUnconditional(_ context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	applyPatch(s, patch)
	return cloneSlot(s), nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[id]; !ok {
		return false, nil
	}
	delete(m.slots, id)
	return true, nil
}

func (m *MemoryStore) ListAvailable(_ context.Context, limit int) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var result []Slot
	for _, s := range m.slots {
		if s.Status == StatusAvailable && s.StartTime.After(now) {
			result = append(result, *cloneSlot(s))
		}
	}
	sortByStart(result)
	return truncate(result, limit), nil
}

func (m *MemoryStore) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit int) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID {
			result = append(result, *cloneSlot(s))
		}
	}
	sortByStart(result)
	return truncate(result, limit), nil
}

func (m *MemoryStore) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Slot
	for _, s := range m.slots {
		if s.PatientID != nil && *s.PatientID == patientID {
			result = append(result, *cloneSlot(s))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return truncate(result, limit), nil
}

func (m *MemoryStore) DeleteExpiredAvailable(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, s := range m.slots {
		if s.Status == StatusAvailable && s.EndTime.Before(cutoff.UTC()) {
			delete(m.slots, id)
			removed++
		}
	}
	return removed, nil
}

func sortByStart(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}

func truncate(slots []Slot, limit int) []Slot {
	if limit > 0 && len(slots) > limit {
		return slots[:limit]
	}
	return slots
}
