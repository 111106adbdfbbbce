// The sweeper removes stale slots: available slots whose end time has
// passed can never be booked, so they are deleted on an interval.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/slot-scheduler/internal/config"
	"github.com/clinicdesk/slot-scheduler/internal/db"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("sweeper starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running sweeper in env=%s interval=%s grace=%s", cfg.Env, cfg.SweepInterval, cfg.SweepGrace)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	store := schedule.NewPgStore(pgPool)

	// Run once at startup
	runOnce(rootCtx, store, cfg.SweepGrace)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, store, cfg.SweepGrace)
		}
	}
}

func runOnce(ctx context.Context, store schedule.Store, grace time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	cutoff := start.Add(-grace)

	removed, err := store.DeleteExpiredAvailable(runCtx, cutoff)
	if err != nil {
		log.Printf("sweep run error: %v", err)
		return
	}
	log.Printf("sweep removed %d stale slots in %s", removed, time.Since(start))
}
