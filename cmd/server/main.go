package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"verifid/internal/audit"
	"verifid/internal/gender"
	"verifid/internal/platform/config"
	"verifid/internal/platform/database"
	"verifid/internal/platform/health"
	"verifid/internal/platform/httpserver"
	"verifid/internal/platform/logger"
	"verifid/internal/providers"
	"verifid/internal/providers/mock"
	"verifid/internal/providers/rekognition"
	"verifid/internal/providers/textract"
	"verifid/internal/token"
	httptransport "verifid/internal/transport/http"
	"verifid/internal/user"
	userstore "verifid/internal/user/store"
	verificationhandler "verifid/internal/verification/handler"
	"verifid/internal/verification/metrics"
	"verifid/internal/verification/service"
	verificationstore "verifid/internal/verification/store"
	"verifid/internal/verification/tracer"
	"verifid/migrations"
	id "verifid/pkg/domain"
)

const (
	tokenTTL        = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing verifid",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"provider", string(cfg.Providers.Kind),
		"target_gender", cfg.TargetGender,
	)

	target, ok := gender.Parse(cfg.TargetGender)
	if !ok {
		log.Error("invalid target gender", "value", cfg.TargetGender)
		os.Exit(1)
	}

	ctx := context.Background()

	set, err := buildProviders(ctx, cfg)
	if err != nil {
		log.Error("provider setup failed", "error", err)
		os.Exit(1)
	}

	pool, err := database.New(databaseConfig(cfg))
	if err != nil {
		log.Error("database setup failed", "error", err)
		os.Exit(1)
	}

	var (
		st       verificationstore.Store
		subjects verificationstore.SubjectStore
	)
	if pool != nil {
		if err := migrations.Apply(ctx, pool.DB()); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		st = verificationstore.NewPostgres(pool.DB())
		subjects = userstore.NewPostgres(pool.DB())
	} else {
		mem := userstore.NewMemory()
		st = verificationstore.NewMemory(mem)
		subjects = mem
		seedDemoSubject(ctx, mem, log)
	}

	auditor := audit.NewPublisher(audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	svc := service.New(st, subjects, set, target,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithTracer(tracer.NewOTel()),
		service.WithAudit(auditor),
		service.WithProviderTimeout(cfg.Providers.Timeout),
	)

	tokenSvc := token.NewService(cfg.JWTSigningKey, tokenTTL)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", healthCheck(pool.Health))
	}
	healthHandler.RegisterCheck("face_analysis", healthCheck(set.Face.Health))
	healthHandler.RegisterCheck("document_ocr", healthCheck(set.Document.Health))

	router := httptransport.NewRouter(httptransport.Deps{
		Verification: verificationhandler.New(svc, log),
		Health:       healthHandler,
		Validator:    token.NewAdapter(tokenSvc),
		Logger:       log,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		_ = pool.Close() //nolint:errcheck // nothing actionable at exit
	}

	log.Info("server stopped")
}

// healthCheck adapts a context-aware probe to the readiness CheckFunc shape.
func healthCheck(probe func(context.Context) error) health.CheckFunc {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return probe(ctx)
	}
}

// buildProviders selects the provider set for the configured vendor.
func buildProviders(ctx context.Context, cfg config.Server) (providers.Set, error) {
	switch cfg.Providers.Kind {
	case config.ProviderAWS:
		rek, err := rekognition.New(ctx, cfg.Providers.Region)
		if err != nil {
			return providers.Set{}, err
		}
		tex, err := textract.New(ctx, cfg.Providers.Region,
			textract.WithFacePresenceCheck(rek))
		if err != nil {
			return providers.Set{}, err
		}
		return providers.Set{Face: rek, Document: tex, Matcher: rek}, nil
	default:
		return mock.New().Set(), nil
	}
}

func databaseConfig(cfg config.Server) database.Config {
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	return dbCfg
}

// seedDemoSubject provisions one unverified account so the in-memory setup
// is usable out of the box with cmd/tokengen.
func seedDemoSubject(ctx context.Context, subjects *userstore.InMemoryStore, log *slog.Logger) {
	uid, err := id.ParseUserID("00000000-0000-0000-0000-000000000001")
	if err != nil {
		return
	}
	_ = subjects.Save(ctx, &user.User{ //nolint:errcheck // memory save cannot fail
		ID:        uid,
		Email:     "demo@verifid.local",
		Name:      "Maria Silva Santos",
		CreatedAt: time.Now().UTC(),
	})
	log.Info("seeded demo subject", "user_id", uid.String())
}
