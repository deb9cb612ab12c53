package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "schoolhub/docs"
	"schoolhub/internal/ai"
	"schoolhub/internal/caching"
	"schoolhub/internal/common"
	"schoolhub/internal/config"
	"schoolhub/internal/handlers"
	"schoolhub/internal/jobs"
	"schoolhub/internal/logging"
	"schoolhub/internal/metrics"
	"schoolhub/internal/middleware"
	"schoolhub/internal/notify"
	"schoolhub/internal/permissions"
	"schoolhub/internal/repositories"
	"schoolhub/internal/services"
	"schoolhub/internal/storage"
	"schoolhub/internal/tenancy"
	"schoolhub/pkg/database"
)

const version = "1.0.0"

// @title                       SchoolHub API
// @version                     1.0
// @description                 Multi-tenant school management: timetables, assignments, fees, messaging and AI assistance.
// @BasePath                    /v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool, log); err != nil {
		log.WithError(err).Fatal("Failed to apply schema")
	}

	redisClient := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheService(redisClient)

	store, err := storage.NewMinioStore(cfg.Minio)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize MinIO client")
	}
	if err := store.EnsureBucketExists(ctx); err != nil {
		log.WithError(err).Warn("Object storage unavailable; submissions with files will fail")
	}

	var sender notify.Sender
	if cfg.Email.SendgridAPIKey != "" {
		sender = notify.NewSendgridSender(cfg.Email.SendgridAPIKey, cfg.Email.FromName, cfg.Email.From, log)
	} else {
		log.Warn("SENDGRID_API_KEY not set; emails are written to stdout")
		sender = notify.NewConsoleSender(os.Stdout, cfg.Email.From)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry)

	// Repositories
	schoolRepo := repositories.NewSchoolRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	roleRepo := repositories.NewRoleRepo(pool)
	peopleRepo := repositories.NewPeopleRepo(pool)
	classRepo := repositories.NewClassRepo(pool)
	timetableRepo := repositories.NewTimetableRepo(pool)
	assignmentRepo := repositories.NewAssignmentRepo(pool)
	feeRepo := repositories.NewFeeRepo(pool)
	messageRepo := repositories.NewMessageRepo(pool)
	whitelistRepo := repositories.NewWhitelistRepo(pool)
	insightRepo := repositories.NewAIInsightRepo(pool)

	// Services
	roles := services.NewRoleResolver(roleRepo, 10000, 5*time.Minute, log)
	schoolSvc := services.NewSchoolService(schoolRepo, userRepo, roles, cacheSvc)
	accountSvc := services.NewAccountService(userRepo, schoolRepo)
	registrationSvc := services.NewRegistrationService(whitelistRepo, peopleRepo, userRepo, roles)
	peopleSvc := services.NewPeopleService(peopleRepo, classRepo)
	classSvc := services.NewClassService(classRepo, peopleRepo)
	timetableSvc := services.NewTimetableService(timetableRepo, classRepo, peopleRepo)
	assignmentSvc := services.NewAssignmentService(assignmentRepo, classRepo, peopleRepo, peopleSvc, store, log)
	feeSvc := services.NewFeeService(feeRepo, peopleRepo, peopleSvc, sender, cacheSvc, log)
	messageSvc := services.NewMessageService(messageRepo, userRepo)
	aiSvc := services.NewAIService(services.AIDeps{
		Completer:   ai.NewClient(cfg.AI.GatewayURL, cfg.AI.GatewayKey, cfg.AI.Model, cfg.AI.Timeout),
		Insights:    insightRepo,
		Classes:     classRepo,
		People:      peopleRepo,
		Access:      peopleSvc,
		Timetable:   timetableSvc,
		Assignments: assignmentRepo,
		Fees:        feeRepo,
		Cache:       cacheSvc,
		Metrics:     appMetrics,
		Log:         log,
	})

	// Middleware
	auth, err := middleware.NewAuthenticator(middleware.JWTConfig{
		Secret:   cfg.JWTSecret,
		JWKSURL:  cfg.JWKSURL,
		Audience: cfg.JWTAudience,
	}, userRepo, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize token verification")
	}
	defer auth.Close()
	tenant := middleware.NewTenantMiddleware(tenancy.NewResolver(schoolRepo, userRepo, cacheSvc, log), userRepo, roles, log)
	aiLimit := middleware.NewAIRateLimit(cacheSvc, cfg.AI.RateLimitPerHour, appMetrics, log)

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(version, map[string]handlers.Check{
		"database": pool.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"storage":  store.EnsureBucketExists,
	})
	schoolHandlers := handlers.NewSchoolHandlers(schoolSvc, accountSvc)
	registrationHandlers := handlers.NewRegistrationHandlers(registrationSvc)
	peopleHandlers := handlers.NewPeopleHandlers(peopleSvc)
	classHandlers := handlers.NewClassHandlers(classSvc)
	timetableHandlers := handlers.NewTimetableHandlers(timetableSvc)
	assignmentHandlers := handlers.NewAssignmentHandlers(assignmentSvc)
	feeHandlers := handlers.NewFeeHandlers(feeSvc)
	messageHandlers := handlers.NewMessageHandlers(messageSvc)
	aiHandlers := handlers.NewAIHandlers(aiSvc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = common.NewRequestValidator()
	e.HTTPErrorHandler = common.NewHTTPErrorHandler(log)

	// Global middleware
	e.Use(echoMiddleware.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "x-client-info", "apikey"},
	}))
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(metrics.HTTPMetrics(appMetrics))

	// Health and tooling endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", metrics.Handler(registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API routes. Every route is authenticated and tenant-resolved; the
	// school comes from the context and never from the request.
	v1 := e.Group("/v1", auth.Middleware(), tenant.Resolve())
	can := middleware.RequirePermission

	v1.POST("/schools", schoolHandlers.CreateSchool)
	v1.GET("/me", schoolHandlers.Me)
	v1.POST("/register/teacher", registrationHandlers.RegisterTeacher)

	v1.GET("/school", schoolHandlers.GetSchool, can(permissions.ViewSchool))
	v1.PUT("/school", schoolHandlers.UpdateSchool, can(permissions.ManageSchool))

	v1.POST("/whitelist", registrationHandlers.AddToWhitelist, can(permissions.ManageWhitelist))
	v1.GET("/whitelist", registrationHandlers.ListWhitelist, can(permissions.ManageWhitelist))
	v1.DELETE("/whitelist/:id", registrationHandlers.RemoveFromWhitelist, can(permissions.ManageWhitelist))

	v1.POST("/students", peopleHandlers.CreateStudent, can(permissions.ManageStudents))
	v1.GET("/students", peopleHandlers.ListStudents, can(permissions.ViewStudents))
	v1.GET("/students/:id", peopleHandlers.GetStudent, can(permissions.ViewStudents))
	v1.POST("/parents", peopleHandlers.CreateParent, can(permissions.ManageParents))
	v1.GET("/teachers", peopleHandlers.ListTeachers, can(permissions.ViewClasses))

	v1.POST("/classes", classHandlers.CreateClass, can(permissions.ManageClasses))
	v1.GET("/classes", classHandlers.ListClasses, can(permissions.ViewClasses))
	v1.GET("/classes/:id", classHandlers.GetClass, can(permissions.ViewClasses))
	v1.PUT("/classes/:id", classHandlers.UpdateClass, can(permissions.ManageClasses))
	v1.DELETE("/classes/:id", classHandlers.DeleteClass, can(permissions.ManageClasses))
	v1.POST("/subjects", classHandlers.CreateSubject, can(permissions.ManageSubjects))
	v1.GET("/subjects", classHandlers.ListSubjects, can(permissions.ViewClasses))
	v1.PUT("/subjects/:id", classHandlers.UpdateSubject, can(permissions.ManageSubjects))
	v1.DELETE("/subjects/:id", classHandlers.DeleteSubject, can(permissions.ManageSubjects))

	v1.GET("/timetable", timetableHandlers.ListTimetable, can(permissions.ViewTimetable))
	v1.POST("/timetable", timetableHandlers.CreateTimetableEntry, can(permissions.ManageTimetable))
	v1.DELETE("/timetable/:id", timetableHandlers.DeleteTimetableEntry, can(permissions.ManageTimetable))

	v1.POST("/assignments", assignmentHandlers.CreateAssignment, can(permissions.CreateAssignment))
	v1.GET("/assignments", assignmentHandlers.ListAssignments, can(permissions.ViewAssignments))
	v1.DELETE("/assignments/:id", assignmentHandlers.DeleteAssignment, can(permissions.DeleteAssignment))
	v1.POST("/assignments/:id/submissions", assignmentHandlers.SubmitAssignment, can(permissions.SubmitAssignment))
	v1.GET("/assignments/:id/submissions", assignmentHandlers.ListSubmissions, can(permissions.ViewSubmissions))
	v1.PUT("/submissions/:id/grade", assignmentHandlers.GradeSubmission, can(permissions.GradeSubmission))

	v1.POST("/fees", feeHandlers.CreateFee, can(permissions.ManageFees))
	v1.GET("/fees", feeHandlers.ListFees, can(permissions.ViewFees))
	v1.GET("/fees/summary", feeHandlers.FeeSummary, can(permissions.ManageFees))
	v1.PUT("/fees/:id/pay", feeHandlers.MarkFeePaid, can(permissions.ManageFees))

	v1.POST("/messages", messageHandlers.SendMessage, can(permissions.SendMessage))
	v1.GET("/conversations", messageHandlers.ListConversations, can(permissions.ViewMessages))
	v1.GET("/conversations/:id/messages", messageHandlers.ListMessages, can(permissions.ViewMessages))
	v1.PUT("/conversations/:id/read", messageHandlers.MarkRead, can(permissions.ViewMessages))

	aiGroup := v1.Group("/ai")
	aiGroup.POST("/timetable", aiHandlers.ProposeTimetable, can(permissions.AITimetable), aiLimit.Middleware("timetable"))
	aiGroup.POST("/performance", aiHandlers.PredictPerformance, can(permissions.AIPerformance), aiLimit.Middleware("performance"))
	aiGroup.POST("/chat", aiHandlers.Chat, can(permissions.AIChat), aiLimit.Middleware("chat"))
	aiGroup.POST("/fee-analytics", aiHandlers.FeeAnalytics, can(permissions.AIFeeAnalytics), aiLimit.Middleware("fee_analytics"))
	aiGroup.GET("/insights", aiHandlers.ListInsights, can(permissions.AIFeeAnalytics))

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler, err = jobs.NewScheduler(cfg.Jobs, feeSvc, registrationSvc, appMetrics, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to create job scheduler")
		}
		scheduler.Start()
	}

	go func() {
		log.WithField("port", cfg.Port).Infof("SchoolHub server v%s starting", version)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP shutdown failed")
	}
	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			log.WithError(err).Error("Job scheduler shutdown failed")
		}
	}
}
