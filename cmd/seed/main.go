package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/slot-scheduler/internal/db"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, full_name, role, specialty, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, 'doctor', $4, TRUE, now(), now())
		`, id, gofakeit.Email(), gofakeit.Name(), specialty)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, email, full_name, role, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, 'patient', TRUE, now(), now())
			`, uuid.New(), gofakeit.Email(), gofakeit.Name())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedSchedules gives every doctor a week of 30-minute slots with a
// lunch break, inserted through the store's batch path.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding schedules for %d doctors", len(doctorIDs))

	store := schedule.NewPgStore(pool)

	dayStart := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	const step = 30 * time.Minute

	for _, doctorID := range doctorIDs {
		var slots []schedule.Slot
		for day := 0; day < 5; day++ {
			workStart := dayStart.AddDate(0, 0, day).Add(9 * time.Hour)
			workEnd := workStart.Add(8 * time.Hour)
			lunch := schedule.Interval{
				Start: workStart.Add(3 * time.Hour),
				End:   workStart.Add(4 * time.Hour),
			}

			for t := workStart; !t.Add(step).After(workEnd); t = t.Add(step) {
				candidate := schedule.Interval{Start: t, End: t.Add(step)}
				if candidate.Overlaps(lunch) {
					continue
				}
				slots = append(slots, schedule.Slot{
					ID:        uuid.New(),
					DoctorID:  doctorID,
					StartTime: candidate.Start,
					EndTime:   candidate.End,
					Status:    schedule.StatusAvailable,
				})
			}
		}

		if _, err := store.InsertMany(ctx, slots); err != nil {
			return err
		}
	}

	log.Println("schedules seeded")
	return nil
}
