package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/lock"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Timetable scheduling and conflict detection service
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Redis backs both the schedule cache and the slot locks. The service
	// degrades gracefully without it: no cache, no cross-instance locking.
	var cacheSvc *service.CacheService
	var locker lock.Locker = lock.NopLocker{}
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache and slot locks")
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Cache.TTL, logr, false)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
		locker = lock.NewRedisLocker(redisClient)
	}

	timetableRepo := repository.NewTimetableRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	lookupRepo := repository.NewLookupRepository(db)

	timetableSvc := service.NewTimetableService(timetableRepo, periodRepo, lookupRepo, cacheSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(periodRepo, validate, logr)
	periodSvc := service.NewPeriodService(periodRepo, timetableRepo, lookupRepo, cacheSvc, metricsSvc, locker, cfg.Timetable, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, timetableRepo, lookupRepo, cacheSvc, logr)

	timetableHandler := handler.NewTimetableHandler(timetableSvc, availabilitySvc, periodSvc)
	periodHandler := handler.NewPeriodHandler(periodSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(cfg.JWT.Secret))

	timetables := api.Group("/timetables")
	{
		timetables.GET("", timetableHandler.List)
		timetables.GET("/:id", timetableHandler.Get)
		timetables.POST("", timetableHandler.Create)
		timetables.DELETE("/:id", timetableHandler.Delete)
		timetables.POST("/availability", timetableHandler.CheckAvailability)
		timetables.PUT("/:id/periods", timetableHandler.BulkReplacePeriods)
	}

	periods := api.Group("/periods")
	{
		periods.POST("", periodHandler.Create)
		periods.PUT("/:id", periodHandler.Update)
		periods.DELETE("/:id", periodHandler.Delete)
	}

	api.GET("/teachers/:id/schedule", scheduleHandler.Teacher)
	api.GET("/teachers/:id/schedule/export", scheduleHandler.ExportTeacher)
	api.GET("/classrooms/:id/schedule", scheduleHandler.Classroom)
	api.GET("/classrooms/:id/schedule/export", scheduleHandler.ExportClassroom)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
