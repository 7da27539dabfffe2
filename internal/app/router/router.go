// Package router wires HTTP handlers into the gin engine.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	platehandler "parking_backend/internal/feature/platedetection/transport/handler"
	"parking_backend/internal/feature/platedetection/transport/telegram"
	"parking_backend/internal/platform/http/handler"
	jwtmw "parking_backend/internal/platform/jwt"
)

// Handlers groups the feature handlers served by the router. Telegram may be nil.
type Handlers struct {
	Upload   *platehandler.UploadHandler
	Jobs     *platehandler.JobsHandler
	Records  *platehandler.RecordsHandler
	Telegram *telegram.WebhookHandler
}

// Options configures cross-cutting router behaviour.
type Options struct {
	JWTSecret   string
	CORSOrigins []string // empty or "*" allows every origin
	ReadyChecks map[string]handler.Check
	// StaticPath/StaticDir serve locally stored images (STORAGE_BACKEND=local).
	StaticPath string
	StaticDir  string
}

func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.GET("/readyz", handler.Readiness(3*time.Second, opts.ReadyChecks))
	r.GET("/", h.Upload.Index)
	r.GET("/test", h.Upload.Test)

	// カメラ（ESP32など）からのアップロード
	r.GET("/upload", h.Upload.UploadInfo)
	r.POST("/upload", h.Upload.Upload)
	r.POST("/upload/async", h.Upload.UploadAsync)

	if h.Telegram != nil {
		r.POST("/telegram-webhook", h.Telegram.Handle)
	}
	if opts.StaticPath != "" && opts.StaticDir != "" {
		r.Static(opts.StaticPath, opts.StaticDir)
	}

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になる
	v1 := r.Group("/v1")
	v1.Use(jwtmw.AuthRequired(opts.JWTSecret))
	{
		v1.GET("/jobs/:id", h.Jobs.Get)
		v1.GET("/records", h.Records.List)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", platehandler.HeaderCameraID},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
