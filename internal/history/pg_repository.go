package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, e Entry) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO medical_history (id, patient_id, doctor_id, slot_id, diagnosis, recommendations, treatment_notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, patient_id, doctor_id, slot_id, diagnosis, recommendations, treatment_notes, recorded_at
	`, e.ID, e.PatientID, e.DoctorID, e.SlotID, e.Diagnosis, e.Recommendations, e.TreatmentNotes, e.RecordedAt)

	return scanEntry(row)
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.PatientID,
		&e.DoctorID,
		&e.SlotID,
		&e.Diagnosis,
		&e.Recommendations,
		&e.TreatmentNotes,
		&e.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, slot_id, diagnosis, recommendations, treatment_notes, recorded_at
		FROM medical_history
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history by patient: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
