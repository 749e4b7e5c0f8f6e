package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"carebridge.org/internal/auth"
	"carebridge.org/internal/config"
	"carebridge.org/internal/httpapi"
	"carebridge.org/internal/obs"
	"carebridge.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version)

	// A misconfigured service must not serve requests.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		store auth.IdentityStore
		ready httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer func() { _ = pgStore.Close() }()
		store = pgStore
		ready = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		mem := auth.NewMemoryStore()
		if err := bootstrapAdmin(mem); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		store = mem
	}

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:    cfg.AuthSecret,
		Algorithm: cfg.AuthAlgorithm,
		TTL:       cfg.TokenTTL,
		Issuer:    cfg.TokenIssuer,
	})
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	svc, err := auth.NewService(store, issuer)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	var gateOpts []auth.GateOption
	if cfg.TrustIDHeader {
		gateOpts = append(gateOpts, auth.TrustIdentityHeader())
	}
	gate, err := auth.NewGate(issuer, store, auth.DefaultBindings(), gateOpts...)
	if err != nil {
		log.Fatalf("authorization gate: %v", err)
	}

	api, err := httpapi.New(httpapi.Options{
		Service:            svc,
		Gate:               gate,
		Ready:              ready,
		AdminKey:           cfg.AdminKey,
		Version:            version,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		LoginRateBurst:     cfg.LoginRateBurst,
	})
	if err != nil {
		log.Fatalf("http api: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	log.Printf("Starting carebridge-auth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

// bootstrapAdmin seeds a provider-admin account for DSN-less development
// runs from CAREBRIDGE_BOOTSTRAP_ADMIN (email:password). Without it the
// memory store starts empty and no login can succeed.
func bootstrapAdmin(store *auth.MemoryStore) error {
	raw := strings.TrimSpace(os.Getenv("CAREBRIDGE_BOOTSTRAP_ADMIN"))
	if raw == "" {
		log.Println("no database configured and no bootstrap admin set; identity store starts empty")
		return nil
	}
	email, password, ok := strings.Cut(raw, ":")
	if !ok || email == "" || password == "" {
		log.Println("invalid CAREBRIDGE_BOOTSTRAP_ADMIN, expected email:password")
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	store.Put(auth.Identity{
		ID:           1,
		Email:        email,
		Role:         auth.RoleProviderAdmin,
		Active:       true,
		Verified:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	log.Printf("bootstrapped admin identity %s", email)
	return nil
}
