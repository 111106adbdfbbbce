package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/slot-scheduler/internal/directory"
	"github.com/clinicdesk/slot-scheduler/internal/history"
	"github.com/clinicdesk/slot-scheduler/internal/metrics"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

type RouterConfig struct {
	Store     schedule.Store
	Generator *schedule.Generator
	Service   *schedule.Service
	Directory *directory.Service
	History   *history.Service
	Metrics   *metrics.SchedulingMetrics

	// Health dependencies; either may be nil in tests.
	PgPool *pgxpool.Pool
	Redis  *redis.Client

	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/doctors", listDoctorsHandler(cfg.Directory))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Directory))
	r.Get("/doctors/{id}/slots", listDoctorSlotsHandler(cfg.Store))

	r.Get("/slots/available", listAvailableSlotsHandler(cfg.Store))
	r.Patch("/slots/{id}/book", bookSlotHandler(cfg.Service, cfg.Metrics))
	r.Patch("/slots/{id}/cancel", cancelSlotHandler(cfg.Service, cfg.Metrics))

	r.Get("/patients/{id}/slots", listPatientSlotsHandler(cfg.Store))
	r.Get("/patients/{id}/history", listPatientHistoryHandler(cfg.History))

	r.Post("/history", addHistoryHandler(cfg.History))

	r.Route("/admin", func(r chi.Router) {
		r.Post("/schedule", generateScheduleHandler(cfg.Generator, cfg.Metrics))
		r.Patch("/slots/{id}", updateSlotHandler(cfg.Service))
		r.Delete("/slots/{id}", deleteSlotHandler(cfg.Service))
		r.Patch("/doctors/{id}", updateDoctorHandler(cfg.Directory))
		r.Patch("/doctors/{id}/activity", toggleDoctorActivityHandler(cfg.Directory))
	})

	return r
}
