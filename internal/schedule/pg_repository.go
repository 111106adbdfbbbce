package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const slotColumns = "id, doctor_id, patient_id, start_time, end_time, status, details, created_at, updated_at"

// PgxPool is the subset of pgxpool.Pool the repository uses, kept as an
// interface so tests can substitute pgxmock.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PgStore struct {
	pool PgxPool
}

func NewPgStore(pool PgxPool) *PgStore {
	return &PgStore{pool: pool}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.PatientID,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.Details,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	return &s, nil
}

func scanSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgStore) FindOne(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgStore) FindByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, doctorID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query slots by range: %w", err)
	}
	return scanSlots(rows)
}

func (r *PgStore) FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY start_time
	`, doctorID, start.UTC(), end.UTC(), excludeID)
	if err != nil {
		return nil, fmt.Errorf("query overlapping slots: %w", err)
	}
	return scanSlots(rows)
}

func (r *PgStore) InsertMany(ctx context.Context, slots []Slot) ([]uuid.UUID, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	ids := make([]uuid.UUID, 0, len(slots))
	for i := range slots {
		s := &slots[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		ids = append(ids, s.ID)
		batch.Queue(`
			INSERT INTO slots (id, doctor_id, patient_id, start_time, end_time, status, details, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, s.ID, s.DoctorID, s.PatientID, s.StartTime.UTC(), s.EndTime.UTC(), s.Status, s.Details)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range slots {
		if _, err := br.Exec(); err != nil {
			return nil, fmt.Errorf("insert slots batch: %w", err)
		}
	}

	return ids, nil
}

// buildPatch renders the SET clause for a partial update. $1 is always
// the slot id; patch columns start at $2.
func buildPatch(patch SlotPatch) (string, []any) {
	set := []string{"updated_at = now()"}
	args := []any{}

	add := func(column string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)+1))
	}

	if patch.DoctorID != nil {
		add("doctor_id", *patch.DoctorID)
	}
	if patch.ClearPatient {
		set = append(set, "patient_id = NULL")
	} else if patch.PatientID != nil {
		add("patient_id", *patch.PatientID)
	}
	if patch.StartTime != nil {
		add("start_time", patch.StartTime.UTC())
	}
	if patch.EndTime != nil {
		add("end_time", patch.EndTime.UTC())
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ClearDetails {
		set = append(set, "details = NULL")
	} else if patch.Details != nil {
		add("details", patch.Details)
	}

	return strings.Join(set, ", "), args
}

// ConditionalUpdate is the single atomic primitive the booking flow
// relies on: the status predicate and the patch apply in one UPDATE, so
// concurrent callers cannot both observe the precondition and both win.
func (r *PgStore) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected SlotStatus, patch SlotPatch) (*Slot, error) {
	setClause, patchArgs := buildPatch(patch)

	args := append([]any{id}, patchArgs...)
	args = append(args, expected)

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE slots
		SET %s
		WHERE id = $1
		  AND status = $%d
		RETURNING `+slotColumns, setClause, len(args)), args...)

	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, ErrNotApplied
		}
		return nil, err
	}
	return slot, nil
}

func (r *PgStore) UpdateUnconditional(ctx context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error) {
	setClause, patchArgs := buildPatch(patch)
	args := append([]any{id}, patchArgs...)

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE slots
		SET %s
		WHERE id = $1
		RETURNING `+slotColumns, setClause), args...)

	return scanSlot(row)
}

func (r *PgStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgStore) ListAvailable(ctx context.Context, limit int) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE status = 'available' AND start_time > now()
		ORDER BY start_time
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return scanSlots(rows)
}

func (r *PgStore) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_id = $1
		ORDER BY start_time
		LIMIT $2
	`, doctorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list slots by doctor: %w", err)
	}
	return scanSlots(rows)
}

func (r *PgStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE patient_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list slots by patient: %w", err)
	}
	return scanSlots(rows)
}

func (r *PgStore) DeleteExpiredAvailable(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE status = 'available' AND end_time < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired available slots: %w", err)
	}
	return tag.RowsAffected(), nil
}
