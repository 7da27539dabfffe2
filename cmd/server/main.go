package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"parking_backend/internal/app/di"
	"parking_backend/internal/app/router"
	platehandler "parking_backend/internal/feature/platedetection/transport/handler"
	"parking_backend/internal/feature/platedetection/transport/telegram"
	"parking_backend/internal/feature/platedetection/usecase"
	platformdb "parking_backend/internal/platform/db"
	"parking_backend/internal/platform/env"
	platformhttp "parking_backend/internal/platform/http"
	"parking_backend/internal/platform/http/handler"
	jwtmw "parking_backend/internal/platform/jwt"
	platformredis "parking_backend/internal/platform/redis"
	"parking_backend/internal/platform/storage"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}
	ctx := context.Background()

	// db
	db, err := platformdb.OpenDB(platformdb.LoadConfigFromEnv())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := platformredis.NewRedisClient(ctx, platformredis.LoadConfigFromEnv()); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache; job status kept in memory.")
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// 検出器とOCRエンジン（モデルはここで1度だけ読み込む）
	engines, err := di.NewEngines(ctx)
	if err != nil {
		log.Fatalf("failed to initialize engines: %v", err)
	}
	defer func() {
		if err := engines.Close(); err != nil {
			log.Println("[ERROR] Failed to release engines:", err)
		}
	}()

	// 画像ストレージ
	storageCfg := storage.LoadConfigFromEnv()
	store, err := storage.New(ctx, storageCfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	if store == nil {
		log.Println("[WARN] STORAGE_BACKEND=none; crops and scenes are not stored.")
	}

	// Repository
	recordRepo := di.NewRecordRepository(rdb, db)

	// Usecase
	pipeline := usecase.NewPipeline(engines.Detector, engines.Recognizer, usecase.LoadPipelineConfig())
	ingestor := usecase.NewIngestor(pipeline, store, recordRepo)
	queue := usecase.NewJobQueue(ingestor, di.NewJobStore(rdb),
		env.Int("JOB_WORKERS", usecase.DefaultJobWorkers), env.Int("JOB_QUEUE_SIZE", usecase.DefaultJobQueueSize))
	recordsUC := usecase.NewRecordsUsecase(recordRepo)

	// Handler
	handlers := router.Handlers{
		Jobs:    platehandler.NewJobsHandler(queue),
		Records: platehandler.NewRecordsHandler(recordsUC),
	}
	var files platehandler.FileFetcher
	if tgCfg, err := telegram.LoadConfig(); err != nil {
		log.Println("[INFO] TELEGRAM_BOT_TOKEN not set; Telegram webhook disabled.")
	} else if bot, err := tgbotapi.NewBotAPI(tgCfg.BotToken); err != nil {
		log.Println("[WARN] Telegram bot unavailable:", err)
	} else {
		tgFiles := telegram.NewFiles(bot, platformhttp.NewHTTPClient(30*time.Second))
		files = tgFiles
		handlers.Telegram = telegram.NewWebhookHandler(bot, tgFiles, queue, tgCfg.CameraID)
	}
	handlers.Upload = platehandler.NewUploadHandler(ingestor, queue, files)

	// readiness
	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	for name, check := range engines.Checks {
		checks[name] = check
	}

	// JWT_SECRETチェック（開発中の注意喚起）
	secret := env.String(jwtmw.EnvKeyJWTSecret, "")
	if secret == "" {
		log.Println("[WARN] JWT_SECRET is not set. /v1 endpoints will answer 500 until it is configured.")
	}

	opts := router.Options{
		JWTSecret:   secret,
		CORSOrigins: splitList(env.String("CORS_ORIGINS", "*")),
		ReadyChecks: checks,
	}
	if storageCfg.Backend == storage.BackendLocal && strings.HasPrefix(storageCfg.LocalBaseURL, "/") {
		opts.StaticPath, opts.StaticDir = storageCfg.LocalBaseURL, storageCfg.LocalDir
	}

	// ルータ生成
	r := router.NewRouter(handlers, opts)

	srv := &http.Server{
		Addr:              ":" + env.String("PORT", "8080"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.Duration("SHUTDOWN_TIMEOUT", 30*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	// 受付済みのジョブを最後まで処理する
	if err := queue.Shutdown(shutdownCtx); err != nil {
		slog.Error("job queue did not drain", "error", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
