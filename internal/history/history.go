// Package history stores medical visit records. Filing a record is the
// event that moves the underlying slot from booked to completed.
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

var (
	ErrEntryNotFound = errors.New("history entry not found")

	// ErrSlotNotOwned means the slot exists but belongs to a different
	// doctor than the one filing the record.
	ErrSlotNotOwned = errors.New("slot does not belong to this doctor")
)

type Entry struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	SlotID          uuid.UUID
	Diagnosis       string
	Recommendations []string
	TreatmentNotes  string
	RecordedAt      time.Time
}

type Repository interface {
	Insert(ctx context.Context, e Entry) (*Entry, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Entry, error)
}

// Completer is the slice of the booking coordinator the history service
// needs: transitioning a slot to completed.
type Completer interface {
	Complete(ctx context.Context, slotID uuid.UUID) (*schedule.Slot, error)
}

type Service struct {
	repo  Repository
	store schedule.Store
	coord Completer
}

func NewService(repo Repository, store schedule.Store, coord Completer) *Service {
	return &Service{
		repo:  repo,
		store: store,
		coord: coord,
	}
}

type AddEntryRequest struct {
	DoctorID        uuid.UUID
	SlotID          uuid.UUID
	Diagnosis       string
	Recommendations []string
	TreatmentNotes  string
}

// AddEntry files a visit record for a slot owned by the doctor and
// marks the slot completed. The record is the source of truth; a slot
// that cannot transition (already completed) does not fail the call.
func (s *Service) AddEntry(ctx context.Context, req AddEntryRequest) (*Entry, error) {
	slot, err := s.store.FindOne(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != req.DoctorID {
		return nil, ErrSlotNotOwned
	}
	if slot.PatientID == nil {
		return nil, schedule.ErrSlotUnavailable
	}

	entry := Entry{
		ID:              uuid.New(),
		PatientID:       *slot.PatientID,
		DoctorID:        req.DoctorID,
		SlotID:          req.SlotID,
		Diagnosis:       req.Diagnosis,
		Recommendations: req.Recommendations,
		TreatmentNotes:  req.TreatmentNotes,
		RecordedAt:      time.Now().UTC(),
	}

	saved, err := s.repo.Insert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("insert history entry: %w", err)
	}

	if _, err := s.coord.Complete(ctx, req.SlotID); err != nil {
		if !errors.Is(err, schedule.ErrSlotUnavailable) {
			return nil, fmt.Errorf("complete slot: %w", err)
		}
		log.Printf("slot %s not transitioned to completed: %v", req.SlotID, err)
	}

	return saved, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}
