// Package directory resolves doctors and patients from the users table.
// The scheduling core consults it before generation and before
// administrative reassignment.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Role      Role
	Specialty *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DoctorUpdate struct {
	FullName string
	Email    string
}

// Repository contains the user lookups the scheduling and history
// services need.
type Repository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListActiveDoctors(ctx context.Context, limit int) ([]User, error)
	SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateDoctor(ctx context.Context, id uuid.UUID, upd DoctorUpdate) error
}

// Service implements the collaborator contract consumed by the core.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.Role == RoleDoctor, nil
}

func (s *Service) DoctorActive(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.Role == RoleDoctor && u.IsActive, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleDoctor {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) ListActiveDoctors(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.ListActiveDoctors(ctx, limit)
}

// ToggleActivity flips a doctor's active flag and returns the new value.
func (s *Service) ToggleActivity(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.GetDoctor(ctx, id)
	if err != nil {
		return false, err
	}
	newState := !u.IsActive
	if err := s.repo.SetDoctorActive(ctx, id, newState); err != nil {
		return false, err
	}
	return newState, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, upd DoctorUpdate) error {
	if _, err := s.GetDoctor(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateDoctor(ctx, id, upd)
}
