package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goodads/internal/api"
	"goodads/internal/conf"
	"goodads/internal/database"
	"goodads/internal/repository"
	"goodads/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func setupLogging(cfg conf.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}

func main() {
	// 1. Config
	cfg, err := conf.LoadConfig()
	if err != nil {
		logrus.Fatalf("Config error: %v", err)
	}
	setupLogging(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	checks := map[string]api.Check{}

	// 2. Session storage
	var (
		storage repository.SessionStorage
		sweeper service.Sweeper
	)
	switch cfg.Session.Driver {
	case conf.SessionDriverRedis:
		redisClient, err := database.ConnectRedis(cfg.Redis)
		if err != nil {
			logrus.Fatalf("Redis error: %v", err)
		}
		defer redisClient.Close()
		storage = repository.NewRedisSessionStorage(redisClient, cfg.Session.TTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	default:
		mem := repository.NewMemorySessionStorage()
		storage, sweeper = mem, mem
	}

	// 3. Lead storage (MongoDB is optional)
	leadRepo := repository.NewMemoryLeadRepo()
	if cfg.MongoDB.URI != "" {
		mongoClient, err := database.Connect(cfg.MongoDB)
		if err != nil {
			logrus.Fatalf("Database error: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		leadRepo, err = repository.NewMongoLeadRepo(context.Background(), mongoClient.Database(cfg.MongoDB.Database))
		if err != nil {
			logrus.Fatalf("Database error: %v", err)
		}
		checks["mongodb"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) }
	} else {
		logrus.Warn("mongodb.uri not set, waitlist sign-ups are kept in memory")
	}

	// 4. Dependency injection
	// Repo -> Service -> Handler
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewClientMetrics(reg)

	client := service.NewAPIClient(cfg.Backend, metrics, component("backend"))
	authService := service.NewAuthService(storage, cfg.Admin, component("auth"))
	notifierService := service.NewNotifierService(cfg.Notify.WebhookURL, component("notifier"))
	leadService := service.NewLeadService(leadRepo, notifierService, component("leads"))
	schedulerService := service.NewSchedulerService(cfg.Scheduler, sweeper, cfg.Session.TTL, client.For(service.Anonymous), metrics, component("scheduler"))

	adminHandler := api.NewAdminHandler(client,
		service.NewDashboardService(component("dashboard")),
		service.NewSubmissionsPanel(component("submissions")),
		service.NewAPIKeysPanel(component("api_keys")),
		leadService,
		component("admin"))
	landingHandler := api.NewLandingHandler(leadService, cfg.Widget, component("landing"))

	// 5. Background workers
	notifierService.Start()
	defer notifierService.Stop()
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Scheduler error: %v", err)
	}
	defer schedulerService.Stop()

	// 6. Gin router
	router, err := api.NewRouter(api.RouterConfig{
		Auth:    authService,
		Session: cfg.Session,
		Admin:   adminHandler,
		Landing: landingHandler,
		Health:  api.NewHealthHandler(checks),
		Metrics: reg,
		Log:     component("http"),
	})
	if err != nil {
		logrus.Fatalf("Router error: %v", err)
	}

	// 7. Start server
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Infof("Server starting on %s (backend %s)", cfg.Server.Port, cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server shutdown: %v", err)
	}
}
