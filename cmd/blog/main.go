package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	memoryRepo "github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/db/memory"
	postgresRepo "github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/db/postgres"
	redisRepo "github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/db/redis"
	httptransport "github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/transport/http"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/validator"
	repo "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/blog-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/infra/migrate"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must("").Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]repo.Pinger{}

	users, closeStore, err := openStore(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to open credential store", zap.Error(err))
	}
	defer closeStore()
	checks["store"] = users

	var limiter repo.AttemptLimiter
	if cfg.RedisAddress != "" {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()

		attempts := redisRepo.NewRedisAttemptRepo(redisCli, cfg.LoginMaxAttempts, cfg.LoginCooldown)
		limiter = attempts
		checks["redis"] = attempts
	} else {
		zapLog.Info("REDIS_ADDRESS not set, sign-in attempts are not limited")
	}

	hasher, err := password.New(cfg.PasswordHasher, cfg.PasswordPepper)
	if err != nil {
		zapLog.Fatal("failed to init password hasher", zap.Error(err))
	}
	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}

	svc := appsvc.New(users, jwtUtil, hasher, validator.New(), limiter, zapLog)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(rootCtx)

	router := httptransport.NewRouter(ctx, httptransport.RouterDeps{
		Config:   cfg,
		Service:  svc,
		Codec:    jwtUtil,
		Logger:   zapLog,
		Registry: registry,
		Checks:   checks,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		zapLog.Info("http server listening",
			zap.String("addr", cfg.HTTPAddress),
			zap.Bool("tls", cfg.TLSEnabled()),
			zap.String("store", cfg.StoreDriver),
		)
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case <-quit:
			zapLog.Info("shutdown signal received")
		case <-ctx.Done():
		}
		cancel()

		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return srv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}

type userStore interface {
	repo.UserRepo
	repo.Pinger
}

func openStore(cfg *config.Config, log *zap.Logger) (userStore, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory credential store, users are lost on restart")
		return memoryRepo.NewUserRepo(), func() {}, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return postgresRepo.NewPostgresUserRepo(db), func() { _ = sqlDB.Close() }, nil
}
