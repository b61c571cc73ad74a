// Server runs the tracking ingestion API: event admission onto the
// in-memory queue, the background persistence worker, and the read-side
// entity, session, and analytics endpoints.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	analyticshandler "tracklix/tracking/internal/analytics/handler"
	analyticsrepo "tracklix/tracking/internal/analytics/repository"
	"tracklix/tracking/internal/config"
	"tracklix/tracking/internal/db"
	"tracklix/tracking/internal/tracking/handler"
	"tracklix/tracking/internal/tracking/producer"
	"tracklix/tracking/internal/tracking/queue"
	"tracklix/tracking/internal/tracking/repository"
	"tracklix/tracking/internal/tracking/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		repo  repository.Repository
		sqlDB *sql.DB
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()
		repo = repository.NewPostgresRepository(sqlDB)
		log.Println("server: using postgres repository")
	} else {
		repo = repository.NewMemoryRepository()
		log.Println("server: DATABASE_URL not set, using in-memory repository")
	}

	q := queue.New(cfg.QueueCapacity)

	var fanout producer.Producer
	kafka := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if kafka != nil {
		fanout = kafka
		log.Printf("server: publishing events to kafka topic %s", cfg.KafkaTopic)
	}

	w := worker.New(q, repo, fanout, cfg.ProductionCodesList())
	go w.Run()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	handler.New(repo, q, w, cfg.SessionCookieName).Register(r)
	if sqlDB != nil {
		analyticshandler.New(analyticsrepo.NewPostgresRepository(sqlDB)).Register(r)
	} else {
		log.Println("server: analytics endpoints disabled without a database")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server: listening on %s (queue capacity %d)", cfg.HTTPAddr, q.Capacity())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("server: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: http shutdown: %v", err)
	}

	// No more submissions can arrive; drain what was accepted.
	q.Close()
	select {
	case <-w.Done():
	case <-time.After(30 * time.Second):
		log.Println("server: worker drain timed out")
	}

	if kafka != nil {
		if err := kafka.Close(); err != nil {
			log.Printf("server: kafka close: %v", err)
		}
	}

	stats := q.Snapshot()
	log.Printf("server: stopped (enqueued %d, dropped %d, processed %d, failed %d)",
		stats.Enqueued, stats.Dropped, w.Processed(), w.Failed())
}
