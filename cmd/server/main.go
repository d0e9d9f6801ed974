package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mobile-workforce/backend/internal/account/repository"
	"mobile-workforce/backend/internal/audit"
	auditrepo "mobile-workforce/backend/internal/audit/repository"
	"mobile-workforce/backend/internal/config"
	"mobile-workforce/backend/internal/db"
	"mobile-workforce/backend/internal/devcode"
	devcodehandler "mobile-workforce/backend/internal/devcode/handler"
	healthhandler "mobile-workforce/backend/internal/health/handler"
	"mobile-workforce/backend/internal/recovery"
	recoveryhandler "mobile-workforce/backend/internal/recovery/handler"
	registrationhandler "mobile-workforce/backend/internal/registration/handler"
	registrationservice "mobile-workforce/backend/internal/registration/service"
	"mobile-workforce/backend/internal/security"
	"mobile-workforce/backend/internal/server"
	"mobile-workforce/backend/internal/server/middleware"
	sessionhandler "mobile-workforce/backend/internal/session/handler"
	sessionrepo "mobile-workforce/backend/internal/session/repository"
	sessionservice "mobile-workforce/backend/internal/session/service"
	otelsetup "mobile-workforce/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "workforce-auth", false)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey,
		cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	accounts := repository.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(database), middleware.GetClientIP)

	var devStore devcode.Store
	var devHandler *devcodehandler.Handler
	if cfg.CodeReturnToClient {
		log.Println("dev code mode enabled; verification codes are served at /v1/dev/verification-code")
		mem := devcode.NewMemoryStore()
		devStore = mem
		devHandler = devcodehandler.NewHandler(mem)
	}

	// No mail provider yet; LogNotifier leaves an operator-visible trace so
	// issued codes are never dropped silently outside dev code mode.
	regSvc := registrationservice.NewService(accounts, hasher, registrationservice.LogNotifier{}, devStore, auditor, cfg.VerificationCodeTTL())
	sessSvc := sessionservice.NewService(accounts, sessions, hasher, tokens, auditor,
		cfg.QuickLoginTTL(), cfg.QuickLoginActivityWindow())

	router := server.NewRouter(server.Handlers{
		Registration: registrationhandler.NewHandler(regSvc),
		Session:      sessionhandler.NewHandler(sessSvc),
		Recovery:     recoveryhandler.NewHandler(recovery.NewAdvisor(accounts)),
		Health:       healthhandler.NewHandler(database),
		DevCode:      devHandler,
	}, tokens, emitter)

	srv := server.New(cfg.HTTPAddr, router)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	if err := server.Shutdown(srv, 10*time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
