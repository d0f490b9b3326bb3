package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/middleware"
	"github.com/yoockh/yoointerview/internal/api/routes"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/storage"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.LoadInterview(config.GetEnv("INTERVIEW_CONFIG", config.DefaultInterviewConfigPath))
	if err != nil {
		log.WithError(err).Fatal("interview config")
	}

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Warn("MongoDB indexes")
	}
	log.Info("MongoDB connected")

	var (
		locker cache.Locker
		doubts cache.Cache
		events services.Publisher
	)
	if config.RedisAddr() != "" {
		if err := config.InitRedis(); err != nil {
			log.WithError(err).Fatal("Redis init")
		}
		locker = cache.NewRedisLocker(config.RedisClient)
		doubts = cache.NewRedisCache(config.RedisClient, "yoointerview:")
		events = services.NewRedisPublisher(config.RedisClient, log)
		log.Info("Redis connected")
	} else {
		log.Warn("Redis not configured: turn lock, doubt cache and status feed disabled")
	}

	ctx := context.Background()
	gen, err := llm.NewVertexGemini(ctx, os.Getenv("VERTEX_PROJECT"), os.Getenv("VERTEX_LOCATION"), os.Getenv("VERTEX_MODEL"))
	if err != nil {
		log.WithError(err).Fatal("Vertex init")
	}
	defer gen.Close()

	var reports storage.Uploader
	if bucket := os.Getenv("REPORT_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.WithError(err).Fatal("GCS init")
		}
		defer gcs.Close()
		reports = gcs
	}

	repo := mongorepo.NewInterviewRepo(config.MongoDatabase())

	interviews := services.NewInterviewService(repo, gen, locker, events, cfg, log)
	h := handlers.NewInterviewHandler(
		services.NewQuestionService(repo, gen, cfg, log),
		interviews,
		services.NewScoringService(repo, gen, reports, events, log),
		services.NewDoubtService(gen, doubts, cfg.DoubtCacheTTL, log),
	)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	deps := routes.Deps{
		Interview: h,
		Auth:      middleware.JWTAuth(middleware.AuthConfigFromEnv()),
	}
	if config.RedisClient != nil {
		deps.WS = handlers.NewWSHandler(interviews, config.RedisClient)
	}
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + config.GetEnv("PORT", "8080"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	if config.MongoClient != nil {
		_ = config.MongoClient.Disconnect(shutdownCtx)
	}
}
