package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users map[uuid.UUID]*User
}

func newFakeRepo(users ...*User) *fakeRepo {
	r := &fakeRepo{users: make(map[uuid.UUID]*User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) ListActiveDoctors(_ context.Context, limit int) ([]User, error) {
	var result []User
	for _, u := range r.users {
		if u.Role == RoleDoctor && u.IsActive {
			result = append(result, *u)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *fakeRepo) SetDoctorActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := r.users[id]
	if !ok || u.Role != RoleDoctor {
		return ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (r *fakeRepo) UpdateDoctor(_ context.Context, id uuid.UUID, upd DoctorUpdate) error {
	u, ok := r.users[id]
	if !ok || u.Role != RoleDoctor {
		return ErrUserNotFound
	}
	u.FullName = upd.FullName
	u.Email = upd.Email
	return nil
}

func TestDoctorExistsAndActive(t *testing.T) {
	activeDoctor := &User{ID: uuid.New(), Role: RoleDoctor, IsActive: true}
	inactiveDoctor := &User{ID: uuid.New(), Role: RoleDoctor, IsActive: false}
	patient := &User{ID: uuid.New(), Role: RolePatient, IsActive: true}

	svc := NewService(newFakeRepo(activeDoctor, inactiveDoctor, patient))
	ctx := context.Background()

	exists, err := svc.DoctorExists(ctx, activeDoctor.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	active, err := svc.DoctorActive(ctx, activeDoctor.ID)
	require.NoError(t, err)
	assert.True(t, active)

	// A deactivated doctor still exists but is not active.
	exists, err = svc.DoctorExists(ctx, inactiveDoctor.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	active, err = svc.DoctorActive(ctx, inactiveDoctor.ID)
	require.NoError(t, err)
	assert.False(t, active)

	// Patients are never doctors no matter their active flag.
	exists, err = svc.DoctorExists(ctx, patient.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	// Unknown IDs report false without an error.
	exists, err = svc.DoctorExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetDoctor_RejectsNonDoctors(t *testing.T) {
	patient := &User{ID: uuid.New(), Role: RolePatient}
	svc := NewService(newFakeRepo(patient))

	_, err := svc.GetDoctor(context.Background(), patient.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestToggleActivity(t *testing.T) {
	doctor := &User{ID: uuid.New(), Role: RoleDoctor, IsActive: true}
	svc := NewService(newFakeRepo(doctor))
	ctx := context.Background()

	nowActive, err := svc.ToggleActivity(ctx, doctor.ID)
	require.NoError(t, err)
	assert.False(t, nowActive)

	nowActive, err = svc.ToggleActivity(ctx, doctor.ID)
	require.NoError(t, err)
	assert.True(t, nowActive)
}

func TestUpdateDoctor(t *testing.T) {
	doctor := &User{ID: uuid.New(), Role: RoleDoctor, IsActive: true, FullName: "Old Name", Email: "old@clinic.test"}
	repo := newFakeRepo(doctor)
	svc := NewService(repo)

	err := svc.UpdateDoctor(context.Background(), doctor.ID, DoctorUpdate{
		FullName: "New Name",
		Email:    "new@clinic.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", repo.users[doctor.ID].FullName)

	err = svc.UpdateDoctor(context.Background(), uuid.New(), DoctorUpdate{FullName: "x", Email: "y"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
