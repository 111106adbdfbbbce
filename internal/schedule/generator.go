package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/slot-scheduler/internal/redis"
)

const (
	MinIntervalMinutes = 5
	MaxIntervalMinutes = 120
)

var (
	ErrInvalidWindow    = errors.New("invalid generation window or interval length")
	ErrDoctorNotFound   = errors.New("doctor not found or inactive")
	ErrNoSlotsGenerated = errors.New("no slots generated: every candidate collides with a break or an existing slot")

	// ErrGenerationInProgress means another bulk generation currently
	// holds the doctor's advisory lock.
	ErrGenerationInProgress = errors.New("schedule generation already in progress for this doctor")
)

// DoctorDirectory is the collaborator consulted before generation and
// before administrative reassignment.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	DoctorActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type GenerateRequest struct {
	DoctorID        uuid.UUID
	WindowStart     time.Time
	WindowEnd       time.Time
	IntervalMinutes int
	Breaks          []Interval
}

type GenerateResult struct {
	CreatedCount int
	Slots        []Slot
}

// Generator carves a doctor's working window into available slots.
type Generator struct {
	store     Store
	directory DoctorDirectory
	locker    redisclient.Locker
}

func NewGenerator(store Store, directory DoctorDirectory, locker redisclient.Locker) *Generator {
	return &Generator{
		store:     store,
		directory: directory,
		locker:    locker,
	}
}

// Generate walks [WindowStart, WindowEnd) in IntervalMinutes steps and
// persists every candidate that overlaps neither a break nor an existing
// slot. A trailing partial slot is dropped. The per-doctor lock narrows
// the window between the range read and the batch insert, but the read
// stays advisory: a slot inserted by a concurrent writer between those
// two steps can still slip through. Booking correctness never depends on
// this pre-filter; the store's conditional update is the final arbiter.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	window := NewInterval(req.WindowStart, req.WindowEnd)
	if !window.Valid() {
		return nil, ErrInvalidWindow
	}
	if req.IntervalMinutes < MinIntervalMinutes || req.IntervalMinutes > MaxIntervalMinutes {
		return nil, ErrInvalidWindow
	}

	active, err := g.directory.DoctorActive(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !active {
		return nil, ErrDoctorNotFound
	}

	breaks := make([]Interval, len(req.Breaks))
	for i, b := range req.Breaks {
		breaks[i] = NewInterval(b.Start, b.End)
	}

	var result *GenerateResult

	key := fmt.Sprintf("schedule:doctor:%s", req.DoctorID)
	err = g.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		existing, err := g.store.FindByDoctorAndRange(lockCtx, req.DoctorID, window.Start, window.End)
		if err != nil {
			return fmt.Errorf("load existing slots: %w", err)
		}

		candidates := g.carve(req.DoctorID, window, req.IntervalMinutes, breaks, existing)
		if len(candidates) == 0 {
			return ErrNoSlotsGenerated
		}

		ids, err := g.store.InsertMany(lockCtx, candidates)
		if err != nil {
			return fmt.Errorf("insert generated slots: %w", err)
		}

		result = &GenerateResult{
			CreatedCount: len(ids),
			Slots:        candidates,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrGenerationInProgress
		}
		return nil, err
	}

	return result, nil
}

func (g *Generator) carve(doctorID uuid.UUID, window Interval, intervalMinutes int, breaks []Interval, existing []Slot) []Slot {
	step := time.Duration(intervalMinutes) * time.Minute

	var candidates []Slot
	for start := window.Start; !start.Add(step).After(window.End); start = start.Add(step) {
		candidate := Interval{Start: start, End: start.Add(step)}

		if overlapsAny(candidate, breaks) {
			continue
		}
		if overlapsAnySlot(candidate, existing) {
			continue
		}

		candidates = append(candidates, Slot{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			StartTime: candidate.Start,
			EndTime:   candidate.End,
			Status:    StatusAvailable,
		})
	}
	return candidates
}

func overlapsAny(candidate Interval, intervals []Interval) bool {
	for _, iv := range intervals {
		if candidate.Overlaps(iv) {
			return true
		}
	}
	return false
}

func overlapsAnySlot(candidate Interval, slots []Slot) bool {
	for i := range slots {
		if candidate.Overlaps(slots[i].Interval()) {
			return true
		}
	}
	return false
}
