package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/handler"
	"github.com/rakazet/basecamp-kita-api/internal/middleware"
	"github.com/rakazet/basecamp-kita-api/internal/realtime"
	"github.com/rakazet/basecamp-kita-api/internal/service"
	"github.com/rakazet/basecamp-kita-api/pkg/cache"
	"github.com/rakazet/basecamp-kita-api/pkg/config"
	"github.com/rakazet/basecamp-kita-api/pkg/database"
	"github.com/rakazet/basecamp-kita-api/pkg/logger"
	corsmiddleware "github.com/rakazet/basecamp-kita-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rakazet/basecamp-kita-api/pkg/middleware/requestid"

	"github.com/rakazet/basecamp-kita-api/internal/repository"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	eventRepo := repository.NewEventRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	metricsService := service.NewMetricsService()

	// The hub and the services reference each other: services notify the
	// hub on every committed mutation, the hub re-reads state through the
	// snapshot service. The hub is built first with a loader that is
	// filled in below.
	var snapshotService *service.SnapshotService
	hub := realtime.NewHub(loaderFunc(func(ctx context.Context, groupID, collection string) (interface{}, error) {
		return snapshotService.LoadSnapshot(ctx, groupID, collection)
	}), logr, metricsService)
	defer hub.Close()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "basecamp-kita",
	})
	presenceService := service.NewPresenceService(redisClient, userRepo, hub, logr, cfg.Presence.TTL)
	userService := service.NewUserService(userRepo, presenceService, validate, logr)
	activityService := service.NewActivityService(activityRepo, hub, logr, metricsService, cfg.Activity.FeedLimit)
	groupService := service.NewGroupService(groupRepo, userRepo, validate, hub, logr)
	eventService := service.NewEventService(eventRepo, validate, activityService, hub, logr)
	participationService := service.NewParticipationService(eventRepo, userRepo, activityService, hub, logr)
	commentService := service.NewCommentService(commentRepo, eventRepo, hub, logr)
	messageService := service.NewMessageService(messageRepo, hub, logr, cfg.Messages.HistoryLimit)
	weekStart := time.Weekday(cfg.Calendar.WeekStart)
	calendarService := service.NewCalendarService(eventRepo, logr, weekStart, cfg.Calendar.MonthPreviewLimit)
	reportService := service.NewReportService(eventRepo, groupRepo, userRepo, logr, weekStart)
	viewService := service.NewViewService(eventRepo, userRepo, presenceService, logr)
	snapshotService = service.NewSnapshotService(eventRepo, userRepo, commentRepo, activityService, messageService, presenceService, logr, cfg.Activity.FeedLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	activityService.StartQueue(ctx)
	defer activityService.StopQueue()

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService, presenceService)
	groupHandler := handler.NewGroupHandler(groupService)
	eventHandler := handler.NewEventHandler(eventService, participationService)
	activityHandler := handler.NewActivityHandler(activityService, cfg.Activity.FeedLimit)
	calendarHandler := handler.NewCalendarHandler(calendarService)
	commentHandler := handler.NewCommentHandler(commentService)
	messageHandler := handler.NewMessageHandler(messageService)
	reportHandler := handler.NewReportHandler(reportService)
	viewHandler := handler.NewViewHandler(viewService)
	originPolicy := corsmiddleware.NewPolicy(cfg.CORS.AllowedOrigins)
	wsHandler := handler.NewWSHandler(hub, logr, originPolicy)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(originPolicy.Middleware())
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService, userService))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/users/:id", userHandler.Get)
	authed.PATCH("/users/me", userHandler.UpdateProfile)
	authed.POST("/presence/heartbeat", userHandler.Heartbeat)
	authed.POST("/presence/offline", userHandler.Offline)

	authed.POST("/groups", groupHandler.Create)
	authed.POST("/groups/join", groupHandler.Join)
	authed.POST("/groups/leave", groupHandler.Leave)
	authed.GET("/groups/me", groupHandler.Get)
	authed.GET("/groups/me/members", userHandler.ListSquad)

	authed.POST("/events", eventHandler.Create)
	authed.GET("/events", eventHandler.List)
	authed.GET("/events/:id", eventHandler.Get)
	authed.PATCH("/events/:id", eventHandler.Update)
	authed.DELETE("/events/:id", eventHandler.Delete)
	authed.POST("/events/:id/join", eventHandler.RequestJoin)
	authed.DELETE("/events/:id/join", eventHandler.CancelRequest)
	authed.POST("/events/:id/approve", eventHandler.Approve)
	authed.POST("/events/:id/reject", eventHandler.Reject)
	authed.POST("/events/:id/leave", eventHandler.Leave)
	authed.GET("/events/:id/comments", commentHandler.List)
	authed.POST("/events/:id/comments", commentHandler.Add)

	authed.GET("/messages", messageHandler.List)
	authed.POST("/messages", messageHandler.Send)

	authed.GET("/view", viewHandler.State)
	authed.PUT("/view/mode", viewHandler.SetMode)
	authed.PUT("/view/date", viewHandler.SelectDate)
	authed.POST("/view/day", viewHandler.SelectDay)
	authed.PUT("/view/filter", viewHandler.SetFilter)
	authed.POST("/view/modal", viewHandler.OpenModal)
	authed.POST("/view/modal/edit", viewHandler.EditModal)
	authed.DELETE("/view/modal", viewHandler.CloseModal)

	authed.GET("/activity", activityHandler.Recent)
	authed.GET("/calendar", calendarHandler.Grid)
	authed.GET("/calendar/holidays", calendarHandler.Holidays)

	if cfg.Reports.Enabled {
		authed.GET("/reports/schedule", reportHandler.WeeklySchedule)
	}

	authed.GET("/ws", wsHandler.Subscribe)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// loaderFunc adapts a closure to the hub's snapshot loader.
type loaderFunc func(ctx context.Context, groupID, collection string) (interface{}, error)

func (f loaderFunc) LoadSnapshot(ctx context.Context, groupID, collection string) (interface{}, error) {
	return f(ctx, groupID, collection)
}
