package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"deltakelse/internal/deltaker"
	deltakerhandler "deltakelse/internal/deltaker/handler"
	"deltakelse/internal/deltaker/service"
	"deltakelse/internal/deltaker/store"
	"deltakelse/internal/hendelse"
	"deltakelse/internal/platform/config"
	"deltakelse/internal/platform/database"
	"deltakelse/internal/platform/httpserver"
	"deltakelse/internal/platform/leaderelection"
	"deltakelse/internal/platform/logger"
	"deltakelse/internal/platform/metrics"
	"deltakelse/internal/platform/middleware"
	"deltakelse/internal/platform/redis"
	"deltakelse/internal/progresjon"
	"deltakelse/migrations"
)

// main wires dependencies and owns process lifecycle. Business logic lives in
// the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	var lager deltaker.Store
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database tilkobling feilet", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db, migrations.FS); err != nil {
			log.Error("migrering feilet", "error", err)
			os.Exit(1)
		}
		lager = store.NewPostgresStore(db)
	} else {
		log.Warn("DATABASE_URL ikke satt, bruker minnelager")
		lager = store.NewMemoryStore()
	}

	var leder leaderelection.Check = leaderelection.Always{}
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis tilkobling feilet", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		leder = leaderelection.New(redisClient.Client, "deltakelse:progresjon:leder", 2*cfg.ProgresjonInterval)
	}

	var publisher hendelse.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = hendelse.NewKafkaPublisher(cfg.KafkaBrokers, cfg.DeltakerTopic)
		if err != nil {
			log.Error("kafka tilkobling feilet", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("KAFKA_BROKERS ikke satt, hendelser publiseres ikke")
		publisher = hendelse.NewMemoryPublisher()
	}
	defer publisher.Close()

	hendelser := make(chan hendelse.Hendelse, 256)
	worker := hendelse.NewWorker(publisher, hendelser, log)

	svc := service.New(lager, hendelser, log, m)
	progresjonHandler := progresjon.NewHandler(lager, hendelser, log, m)
	progresjonJob := progresjon.NewJob(progresjonHandler, leder, cfg.ProgresjonInterval, log, m)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	deltakerhandler.New(svc, log).RegisterRoutes(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := progresjonJob.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starter deltakelse", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server avsluttet med feil", "error", err)
		os.Exit(1)
	}
	log.Info("server avsluttet")
}
