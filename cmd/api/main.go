package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/blocops/bloc-planning-api/internal/handler"
	"github.com/blocops/bloc-planning-api/internal/repository"
	"github.com/blocops/bloc-planning-api/internal/service"
	"github.com/blocops/bloc-planning-api/pkg/cache"
	"github.com/blocops/bloc-planning-api/pkg/config"
	"github.com/blocops/bloc-planning-api/pkg/database"
	"github.com/blocops/bloc-planning-api/pkg/events"
	"github.com/blocops/bloc-planning-api/pkg/logger"
	corsmiddleware "github.com/blocops/bloc-planning-api/pkg/middleware/cors"
	reqidmiddleware "github.com/blocops/bloc-planning-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Planning.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, planning cache disabled", "error", err)
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Planning.CacheTTL, logr, cfg.Planning.CacheEnabled && redisClient != nil)

	bus := events.NewBus(events.BusConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		Logger:     logr,
	})
	bus.Subscribe(events.PlanningGenerated, func(e events.Event) {
		logr.Sugar().Infow("planning generated", "payload", e.Payload)
	})
	bus.Subscribe(events.RulesLoaded, func(e events.Event) {
		logr.Sugar().Debugw("rules loaded", "payload", e.Payload)
	})
	bus.Start(context.Background())
	defer bus.Stop()

	templateRepo := repository.NewTemplateRepository(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	planningRepo := repository.NewPlanningRepository(db)
	roomRepo := repository.NewRoomAssignmentRepository(db)
	staffAssignmentRepo := repository.NewStaffAssignmentRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	validate := validator.New()

	generator := service.NewPlanningGeneratorService(
		templateRepo,
		absenceRepo,
		planningRepo,
		roomRepo,
		staffAssignmentRepo,
		conflictRepo,
		service.NewConflictDetector(),
		db,
		cacheSvc,
		bus,
		metrics,
		validate,
		logr,
	)

	optimizer := service.NewPlanningOptimizerService(
		ruleRepo,
		staffRepo,
		planningRepo,
		absenceRepo,
		service.NewStructuralRuleEvaluator(),
		nil,
		service.NewScorer(cfg.Optimizer.ComplianceWeight, cfg.Optimizer.EquityWeight, cfg.Optimizer.SatisfactionWeight),
		bus,
		metrics,
		validate,
		logr,
		service.OptimizerOptions{MaxAttempts: cfg.Optimizer.MaxAttempts},
	)

	queries := service.NewPlanningQueryService(planningRepo, cacheSvc, logr)
	planningHandler := handler.NewPlanningHandler(generator, optimizer, queries)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group(cfg.APIPrefix)
	planningHandler.Register(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
