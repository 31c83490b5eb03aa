// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bdivp/internal/admin"
	"bdivp/internal/audit"
	auditstore "bdivp/internal/audit/store"
	authhandler "bdivp/internal/auth/handler"
	authservice "bdivp/internal/auth/service"
	"bdivp/internal/auth/store/resettoken"
	"bdivp/internal/auth/store/tokencache"
	httpapi "bdivp/internal/http"
	"bdivp/internal/jwttoken"
	"bdivp/internal/mailer"
	partnerhandler "bdivp/internal/partner/handler"
	partnerservice "bdivp/internal/partner/service"
	partnerstore "bdivp/internal/partner/store"
	"bdivp/internal/platform/config"
	"bdivp/internal/platform/crypto"
	"bdivp/internal/platform/httpserver"
	"bdivp/internal/platform/logger"
	"bdivp/internal/platform/postgres"
	platformredis "bdivp/internal/platform/redis"
	"bdivp/internal/ratelimit"
	ratestore "bdivp/internal/ratelimit/store"
	userhandler "bdivp/internal/user/handler"
	userservice "bdivp/internal/user/service"
	userstore "bdivp/internal/user/store"
	"bdivp/internal/verification"
	"bdivp/pkg/platform/middleware/auth"
	"bdivp/pkg/platform/tx"
)

const tokenSweepInterval = time.Hour

func main() {
	log := logger.New()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cipher, err := crypto.NewCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		log.Error("bad encryption key", "error", err)
		os.Exit(1)
	}

	partners := partnerstore.NewPostgres(db)
	users := userstore.NewPostgres(db)
	tokens := tokencache.NewPostgres(db)
	resets := resettoken.NewPostgres(db)
	audits := auditstore.NewPostgres(db)

	// Rate limiting prefers Redis so limits hold across replicas; without it
	// each replica counts alone.
	var rateStore ratelimit.Store = ratestore.NewMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		rateStore = ratestore.NewRedis(redisClient.Client)
		log.Info("rate limiting backed by redis")
	}

	recorder := audit.NewRecorder(log, 1024)
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("kafka audit sink unavailable", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafkaSink.Close(closeCtx)
		}()
		sink = kafkaSink
		log.Info("audit trail mirrored to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	worker := audit.NewWorker(recorder, audits, sink, log)

	issuer := jwttoken.NewService(cfg.JWTSigningKey, "bdivp", cfg.JWTTTL)
	mail := mailer.NewSMTP(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Pass,
		From:     cfg.SMTP.From,
	}, log)

	authSvc := authservice.New(users, partners, tokens, resets, issuer, mail, tx.NewRunner(db), recorder, log, cfg.FrontendURL)
	partnerSvc := partnerservice.New(partners, cipher, log)
	userSvc := userservice.New(users, log)
	verifSvc := verification.NewService(partners, cipher, verification.NewClient(cfg.NIDAPIURL, cfg.NIDAPITimeout), log)
	adminSvc := admin.NewService(partners, users, tokens, audits)

	router := httpapi.NewRouter(httpapi.Deps{
		Auth:         authhandler.New(authSvc),
		Partners:     partnerhandler.New(partnerSvc, recorder),
		Users:        userhandler.New(userSvc, recorder),
		Verification: verification.NewHandler(verifSvc, recorder),
		Admin:        admin.NewHandler(adminSvc),
		RequireAuth:  auth.RequireAuth(issuer, tokens, users, log),
		RateLimit:    ratelimit.New(rateStore, cfg.RateLimit, cfg.RateLimitWindow, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting bdivp gateway", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Expired session tokens are only logically dead until this sweeps them.
	g.Go(func() error {
		ticker := time.NewTicker(tokenSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := tokens.DeleteExpired(ctx)
				if err != nil {
					log.Warn("token sweep failed", "error", err)
					continue
				}
				if n > 0 {
					log.Info("swept expired tokens", "deleted", n)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
	log.Info("gateway stopped")
}
