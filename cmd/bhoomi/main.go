package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bhoomi-id/bhoomi/internal/app"
	"github.com/bhoomi-id/bhoomi/internal/audit"
	"github.com/bhoomi-id/bhoomi/internal/cache"
	"github.com/bhoomi-id/bhoomi/internal/config"
	"github.com/bhoomi-id/bhoomi/internal/consent"
	"github.com/bhoomi-id/bhoomi/internal/credential"
	"github.com/bhoomi-id/bhoomi/internal/email"
	httpx "github.com/bhoomi-id/bhoomi/internal/http"
	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
	"github.com/bhoomi-id/bhoomi/internal/projector"
	"github.com/bhoomi-id/bhoomi/internal/rate"
	"github.com/bhoomi-id/bhoomi/internal/registry"
	"github.com/bhoomi-id/bhoomi/internal/requests"
	"github.com/bhoomi-id/bhoomi/internal/security/secretbox"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/store/memory"
	"github.com/bhoomi-id/bhoomi/internal/store/pg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BHOOMI_CONFIG"))
	if err != nil {
		return err
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: "info", ServiceName: "bhoomi"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store: pg cuando hay DSN; memory para dev sin base
	var repo core.Repository
	var pgStore *pg.Store
	if cfg.Storage.DSN != "" {
		lifetime, _ := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		pgStore, err = pg.New(ctx, cfg.Storage.DSN, pg.Options{
			MaxConns:        int32(cfg.Storage.Postgres.MaxOpenConns),
			MinConns:        int32(cfg.Storage.Postgres.MaxIdleConns),
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return err
		}
		defer pgStore.Close()
		if cfg.Flags.Migrate {
			if err := pgStore.Migrate(ctx); err != nil {
				return err
			}
			log.Info("migrations_applied")
		}
		repo = pgStore
	} else {
		log.Warn("no DSN configured, using in-memory store (dev only)")
		repo = memory.New()
	}

	cch, err := cache.New(cache.Config{
		Kind:   cfg.Cache.Kind,
		Addr:   cfg.Cache.Redis.Addr,
		DB:     cfg.Cache.Redis.DB,
		Prefix: cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return err
	}
	defer func() { _ = cch.Close() }()

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if rc, ok := cch.(*cache.Redis); ok {
			limiter = rate.NewRedisLimiter(rc.Client(), "rate:", cfg.Rate.Login.Limit, cfg.LoginRateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.LoginRateWindow())
		}
	}

	credSecret := []byte(cfg.Credential.Secret)
	if len(credSecret) == 0 && cfg.App.Env == "dev" {
		// secreto efímero: los tokens emitidos no sobreviven un restart
		log.Warn("BHOOMI_CREDENTIAL_SECRET not set, using ephemeral dev secret")
		credSecret = make([]byte, 32)
		if _, err := rand.Read(credSecret); err != nil {
			return err
		}
	}
	issuer, err := credential.NewIssuer(credSecret, cfg.Credential.Issuer, cfg.CredentialTTL())
	if err != nil {
		return err
	}
	var box *secretbox.Box
	if cfg.Security.SecretBoxMasterKey == "" && cfg.App.Env == "dev" {
		// clave efímera: los campos cifrados no sobreviven un restart
		log.Warn("SECRETBOX_MASTER_KEY not set, using ephemeral dev key")
		k := make([]byte, 32)
		if _, err := rand.Read(k); err != nil {
			return err
		}
		box, err = secretbox.NewFromRaw(k)
	} else {
		box, err = secretbox.New(cfg.Security.SecretBoxMasterKey)
	}
	if err != nil {
		return err
	}

	var sender email.Sender = email.EchoSender{}
	if cfg.SMTP.Host != "" && !cfg.Email.DebugEchoCodes {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	audits := audit.New(repo)
	ledger := consent.New(repo)
	ledger.OnRevoked(func(ctx context.Context, ev consent.RevokedEvent) {
		audits.Append(ctx, &core.AccessLogEntry{
			SubjectID: ev.SubjectID,
			ServiceID: &ev.ServiceID,
			Action:    "CONSENT_REVOKED",
			Resource:  fmt.Sprintf("rejected_requests: %d", ev.RejectedRequests),
			Outcome:   core.OutcomeSuccess,
		})
	})

	c := &app.Container{
		Cfg:       cfg,
		Store:     repo,
		Cache:     cch,
		Limiter:   limiter,
		Issuer:    issuer,
		Box:       box,
		Registry:  registry.New(repo),
		Ledger:    ledger,
		Projector: projector.New(repo, ledger, audits, box),
		Audits:    audits,
		Requests:  requests.New(repo, ledger, audits),
		Email:     sender,
	}

	srv := httpx.NewServer(cfg.Server.Addr, httpx.NewRouter(c))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return httpx.Shutdown(srv, 15*time.Second)
	})

	return g.Wait()
}
