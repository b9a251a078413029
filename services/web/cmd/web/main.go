package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"dailyreport/internal/ratelimit"
	"dailyreport/internal/util"
	"dailyreport/pkg/auth"
	"dailyreport/pkg/storage"
	"dailyreport/services/web/internal/app"
	"dailyreport/services/web/internal/config"
	"dailyreport/services/web/internal/server"
	"dailyreport/services/web/internal/store"
	"dailyreport/services/web/internal/upload"
)

const (
	defaultLoginRateLimit = 10
	janitorInterval       = 10 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to WEB_CONFIG or ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	visitorTTL, err := config.ParseVisitorTTL(cfg.VisitorTTL)
	if err != nil {
		log.Fatalf("failed to parse visitor TTL: %v", err)
	}
	csrfKey, err := config.ParseCSRFKey(cfg.CSRFAuthKey)
	if err != nil {
		log.Fatalf("failed to parse CSRF key: %v", err)
	}
	loc, err := config.ParseLocation(cfg.TimeZone)
	if err != nil {
		log.Fatalf("failed to load time zone: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("invalid trusted proxy CIDRs: %v", err)
	}
	visitors, err := store.NewVisitorTokens(cfg.VisitorSecret, visitorTTL)
	if err != nil {
		log.Fatalf("failed to init visitor tokens: %v", err)
	}

	var (
		jars         store.JarStore
		loginLimiter *ratelimit.FixedWindowLimiter
		gateLimiter  *ratelimit.FixedWindowLimiter
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		jars = store.NewRedisJarStore(client, "")
		limit := cfg.LoginRateLimitPerMinute
		if limit == 0 {
			limit = defaultLoginRateLimit
		}
		loginLimiter, err = ratelimit.NewFixedWindowLimiter(client, "dailyreport:web:ratelimit:login", limit, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login limiter: %v", err)
		}
		gateLimiter, err = ratelimit.NewFixedWindowLimiter(client, "dailyreport:web:ratelimit:register_gate", limit, time.Minute)
		if err != nil {
			log.Fatalf("failed to init register gate limiter: %v", err)
		}
	} else {
		logger.Warn("redisAddr not set; sessions are kept in memory and rate limiting is disabled")
	}

	var uploader upload.Uploader
	if cfg.UploadBackend == config.UploadBackendMinio {
		objects, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.MinioPublicBaseURL,
		})
		if err != nil {
			log.Fatalf("failed to init object storage: %v", err)
		}
		uploader = upload.NewObjectUploader(objects)
	}

	appCore, err := app.New(app.Config{
		APIBaseURL:          cfg.APIBaseURL,
		RequestTimeout:      config.Seconds(cfg.RequestTimeoutSeconds, 10*time.Second),
		SessionFetchTimeout: config.Seconds(cfg.SessionFetchTimeoutSeconds, 5*time.Second),
		VisitorTTL:          visitorTTL,
		Location:            loc,
		RegisterGate:        auth.Gate{ID: cfg.RegisterGateID, PasswordHash: cfg.RegisterGatePasswordHash},
		UploadPolicy:        upload.Policy{MaxBytes: cfg.MaxUploadBytes, Extensions: cfg.AllowedImageExtensions},
		Jars:                jars,
		Uploader:            uploader,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Visitors:       visitors,
		CSRFKey:        csrfKey,
		CookieSecure:   cfg.CookieSecure,
		Trusted:        trusted,
		LoginLimiter:   loginLimiter,
		GateLimiter:    gateLimiter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	if csrfKey == nil {
		logger.Warn("csrfAuthKey not set; CSRF protection is disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go appCore.RunJanitor(ctx, janitorInterval, visitorTTL)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("web server listening", "addr", addr, "api", cfg.APIBaseURL, "upload_backend", cfg.UploadBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}
