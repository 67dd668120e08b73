package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agencyerp/internal/domain/audit"
	"agencyerp/internal/domain/auth"
	"agencyerp/internal/domain/core"
	"agencyerp/internal/domain/crm"
	"agencyerp/internal/domain/holiday"
	"agencyerp/internal/domain/leave"
	"agencyerp/internal/domain/notifications"
	"agencyerp/internal/domain/payroll"
	"agencyerp/internal/domain/projects"
	"agencyerp/internal/platform/config"
	cryptoutil "agencyerp/internal/platform/crypto"
	"agencyerp/internal/platform/db"
	"agencyerp/internal/platform/email"
	"agencyerp/internal/platform/jobs"
	"agencyerp/internal/platform/metrics"
	audithandler "agencyerp/internal/transport/http/handlers/audit"
	authhandler "agencyerp/internal/transport/http/handlers/auth"
	corehandler "agencyerp/internal/transport/http/handlers/core"
	crmhandler "agencyerp/internal/transport/http/handlers/crm"
	leavehandler "agencyerp/internal/transport/http/handlers/leave"
	notificationshandler "agencyerp/internal/transport/http/handlers/notifications"
	payrollhandler "agencyerp/internal/transport/http/handlers/payroll"
	projectshandler "agencyerp/internal/transport/http/handlers/projects"
	"agencyerp/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

// New connects to the database, applies migrations and seed data when the
// config asks for it, and wires every store, service, and handler onto a
// router. It does not start listening; Run does that.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrationsDir()); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}

	authStore := auth.NewStore(pool)
	coreStore := core.NewStore(pool, crypto)
	holidayStore := holiday.NewStore(pool)
	leaveService := leave.NewService(leave.NewStore(pool), coreStore, holidayStore)
	payrollService := payroll.NewService(payroll.NewStore(pool), crypto, cfg.PayslipDir)
	crmService := crm.NewService(crm.NewStore(pool))
	projectsService := projects.NewService(projects.NewStore(pool))
	auditService := audit.New(pool)
	notifyService := notifications.New(notifications.NewStore(pool), email.New(cfg))
	if cfg.EmailFrom != "" {
		notifyService.DefaultFrom = cfg.EmailFrom
	}
	jobsService := jobs.New(pool)
	collector := metrics.New()

	isProd := cfg.Environment == "production"

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(isProd))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metricsz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(collector.Snapshot())
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(pool, authStore, cfg.JWTSecret, crypto, auditService).RegisterRoutes(r)
		corehandler.NewHandler(coreStore, authStore, auditService).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, holidayStore, authStore, notifyService, auditService).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollService, coreStore, authStore, notifyService, auditService, jobsService).RegisterRoutes(r)
		crmhandler.NewHandler(crmService, authStore, notifyService, auditService).RegisterRoutes(r)
		projectshandler.NewHandler(projectsService, authStore, notifyService, auditService).RegisterRoutes(r)
		audithandler.NewHandler(auditService, authStore).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService, authStore).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Jobs:    jobsService,
		Metrics: collector,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// migrationsDir walks up from the working directory so tests run from a
// package directory still find the repository's migrations.
func migrationsDir() string {
	dir := "migrations"
	for i := 0; i < 5; i++ {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		dir = filepath.Join("..", dir)
	}
	return "migrations"
}

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}
	defer app.Close()

	log.Printf("agency ERP server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
