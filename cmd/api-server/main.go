package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/slot-scheduler/internal/api"
	"github.com/clinicdesk/slot-scheduler/internal/config"
	"github.com/clinicdesk/slot-scheduler/internal/db"
	"github.com/clinicdesk/slot-scheduler/internal/directory"
	"github.com/clinicdesk/slot-scheduler/internal/history"
	"github.com/clinicdesk/slot-scheduler/internal/metrics"
	redisclient "github.com/clinicdesk/slot-scheduler/internal/redis"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	store := schedule.NewPgStore(pgPool)
	dir := directory.NewService(directory.NewPgRepository(pgPool))
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	generator := schedule.NewGenerator(store, dir, locker)
	coordinator := schedule.NewService(store, dir)
	histSvc := history.NewService(history.NewPgRepository(pgPool), store, coordinator)
	schedMetrics := metrics.NewSchedulingMetrics(nil)

	router := api.NewRouter(api.RouterConfig{
		Store:     store,
		Generator: generator,
		Service:   coordinator,
		Directory: dir,
		History:   histSvc,
		Metrics:   schedMetrics,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
