package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "buoycloud/internal/api/http"
	"buoycloud/internal/audit"
	"buoycloud/internal/auth"
	"buoycloud/internal/config"
	fleetrepo "buoycloud/internal/fleet/infrastructure/postgres"
	"buoycloud/internal/observability/metrics"
	observations "buoycloud/internal/observations/domain"
	obsrepo "buoycloud/internal/observations/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	buoyRepo, err := fleetrepo.NewBuoyRepository(db)
	if err != nil {
		logger.Fatalf("buoy repository error: %v", err)
	}
	driftBuoyRepo, err := fleetrepo.NewDriftBuoyRepository(db)
	if err != nil {
		logger.Fatalf("drift buoy repository error: %v", err)
	}

	softCeiling := int16(cfg.SoftFlagCeiling)
	qualifiedRepo, err := obsrepo.NewQualifiedRepository(db, obsrepo.WithQualifiedSoftCeiling(softCeiling))
	if err != nil {
		logger.Fatalf("qualified repository error: %v", err)
	}
	driftRepo, err := obsrepo.NewDriftRepository(db, obsrepo.WithDriftSoftCeiling(softCeiling))
	if err != nil {
		logger.Fatalf("drift repository error: %v", err)
	}

	windowPolicy := observations.WindowPolicy{
		Lookback:  time.Duration(cfg.Window.LookbackDays) * 24 * time.Hour,
		Lookahead: time.Duration(cfg.Window.LookaheadDays) * 24 * time.Hour,
		MaxSpan:   time.Duration(cfg.Window.MaxSpanDays) * 24 * time.Hour,
	}
	accessChecker := auth.NewOpenDataChecker(buoyRepo)

	buoyHandler, err := apihttp.NewBuoyHandler(buoyRepo, auditRepo)
	if err != nil {
		logger.Fatalf("buoy handler error: %v", err)
	}
	driftBuoyHandler, err := apihttp.NewDriftBuoyHandler(driftBuoyRepo, auditRepo)
	if err != nil {
		logger.Fatalf("drift buoy handler error: %v", err)
	}
	qualifiedHandler, err := apihttp.NewQualifiedHandler(qualifiedRepo, buoyRepo, accessChecker, windowPolicy, auditRepo, cfg.DefaultLimit)
	if err != nil {
		logger.Fatalf("qualified handler error: %v", err)
	}
	driftHandler, err := apihttp.NewDriftHandler(driftRepo, windowPolicy, auditRepo, cfg.DefaultLimit)
	if err != nil {
		logger.Fatalf("drift handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/buoys", buoyHandler)
	mux.Handle("/api/v1/buoys/", buoyHandler)
	mux.Handle("/api/v1/drift-buoys", driftBuoyHandler)
	mux.Handle("/api/v1/drift-buoys/", driftBuoyHandler)
	mux.Handle("/api/v1/qualified", qualifiedHandler)
	mux.Handle("/api/v1/qualified/", qualifiedHandler)
	mux.Handle("/api/v1/drift", driftHandler)
	mux.Handle("/api/v1/drift/", driftHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.ObserveHTTP(r.URL.Path, resp.status)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
