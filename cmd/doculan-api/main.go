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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/MonishNivethIlango/doculan-service-sub001/api/swagger"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/handler"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/middleware"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/repository"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/cache"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/config"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/cryptox"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/database"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/jobs"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/lock"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/logger"
	corsmiddleware "github.com/MonishNivethIlango/doculan-service-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/MonishNivethIlango/doculan-service-sub001/pkg/middleware/requestid"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/storage"
)

// @title Doculan API
// @version 1.0.0
// @description Multi-tenant document storage and role based access control for e-signature workflows.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, falling back to in-process locks without role caching", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to init object store", zap.Error(err))
	}

	ciphers, err := cryptox.NewFromHex(cfg.Encryption.MasterKeyHex)
	if err != nil {
		logr.Fatal("invalid encryption key", zap.Error(err))
	}

	lockOpts := lock.Options{
		TTL:     cfg.IndexLock.TTL,
		Retries: cfg.IndexLock.Retries,
		Backoff: cfg.IndexLock.Backoff,
		Logger:  logr,
	}
	var locker lock.Locker = lock.NewLocalLocker(lockOpts)
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient, lockOpts)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.RBAC.RoleCacheTTL, logr, redisClient != nil)

	engine := service.NewS3DocumentStorage(store, ciphers, locker, metricsSvc, logr, service.DocumentStorageConfig{
		ServerSideKey:   cfg.Storage.S3KMSKeyID,
		MoveConcurrency: cfg.Storage.MoveConcurrency,
	})
	backends := service.NewStorageFactory(map[string]service.StorageStrategy{
		config.StorageS3:    engine,
		config.StorageLocal: engine,
		config.StorageDrive: service.NewDriveStorage(store, ciphers, logr),
	})
	signer := storage.NewSignedURLSigner(cfg.Storage.SigningSecret, cfg.Storage.PresignTTL)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "doculan-api",
	})
	permissionSvc := service.NewPermissionService(roleRepo, cacheSvc, logr, service.PermissionServiceConfig{
		RoleCacheTTL:     cfg.RBAC.RoleCacheTTL,
		PatternCacheSize: cfg.RBAC.PatternCacheSize,
		PatternCacheTTL:  cfg.RBAC.PatternCacheTTL,
	}).WithMetrics(metricsSvc)
	roleSvc := service.NewRoleService(roleRepo, permissionSvc, userRepo, validate, logr)
	folderSvc := service.NewFolderService(store, locker, userRepo, logr)
	documentSvc := service.NewDocumentService(backends, signer, userRepo, validate, logr, service.DocumentServiceConfig{
		StorageType:    cfg.Storage.Type,
		APIPrefix:      cfg.APIPrefix,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		DownloadTTL:    cfg.Storage.PresignTTL,
	})

	var audits *service.IndexAuditService
	if cfg.IndexAudit.Enabled {
		audits = service.NewIndexAuditService(engine, logr)
		queue := jobs.NewQueue("index-audit", audits.Handle, jobs.QueueConfig{
			Workers:    cfg.IndexAudit.Workers,
			MaxRetries: cfg.IndexAudit.Retries,
			Logger:     logr,
			OnGiveUp: func(job jobs.Job, err error) {
				logr.Error("index audit abandoned", zap.String("job_id", job.ID), zap.Error(err))
			},
		})
		queue.Start(ctx)
		defer queue.Stop()
		audits.SetQueue(queue)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, readinessChecks(db, redisClient, store))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes := routeDeps{
		auth:      handler.NewAuthHandler(authSvc),
		documents: newDocumentHandler(documentSvc, audits, cfg.Storage.MaxUploadBytes),
		roles:     handler.NewRoleHandler(roleSvc),
		folders:   handler.NewFolderHandler(folderSvc),
		metrics:   metricsHandler,
	}
	registerRoutes(r.Group(cfg.APIPrefix), routes, authSvc, permissionSvc, userRepo, cfg.APIPrefix, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeDeps struct {
	auth      *handler.AuthHandler
	documents *handler.DocumentHandler
	roles     *handler.RoleHandler
	folders   *handler.FolderHandler
	metrics   *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h routeDeps, auth *service.AuthService, authz *service.PermissionService, audit *repository.UserRepository, apiPrefix string, logr *zap.Logger) {
	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/refresh", h.auth.Refresh)
	// Redeemed with a signed token instead of a bearer token.
	api.GET("/documents/download", h.documents.Download)

	jwt := middleware.JWT(auth)
	denied := middleware.AuditDenied(audit)

	account := api.Group("/auth", jwt)
	account.POST("/logout", h.auth.Logout)
	account.POST("/change-password", h.auth.ChangePassword)
	account.GET("/me", h.auth.Me)

	secured := api.Group("", jwt, denied, middleware.Permission(authz, apiPrefix, logr))
	docs := secured.Group("/documents")
	docs.POST("", h.documents.Upload)
	docs.GET("", h.documents.List)
	docs.GET("/export", h.documents.Export)
	docs.POST("/move", h.documents.Move)
	docs.POST("/audit", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), h.documents.StartAudit)
	docs.GET("/audit/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), h.documents.GetAudit)
	docs.GET("/:id", h.documents.Get)
	docs.GET("/:id/content", h.documents.Content)
	docs.GET("/:id/url", h.documents.DownloadURL)
	docs.PUT("/:id", h.documents.Update)
	docs.DELETE("/:id", h.documents.Delete)

	folders := secured.Group("/folders/assignments")
	folders.GET("/:role", h.folders.Get)
	folders.POST("", h.folders.Assign)
	folders.DELETE("/:role/:mappingId", h.folders.Remove)

	admin := api.Group("", jwt, denied, middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.GET("/roles", h.roles.ListOrg)
	admin.PUT("/roles", h.roles.UpsertOrg)
	admin.DELETE("/roles/:name", h.roles.DeleteOrg)
	admin.GET("/metrics/snapshot", h.metrics.Snapshot)

	super := api.Group("/roles/defaults", jwt, denied, middleware.RequireRoles(models.RoleSuperAdmin))
	super.GET("", h.roles.ListDefaults)
	super.PUT("", h.roles.UpsertDefault)
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Type {
	case config.StorageLocal:
		return storage.NewLocalStore(cfg.Storage.LocalDir)
	case config.StorageS3, config.StorageDrive:
		// Drive keeps its blobs in the same bucket as the S3 engine.
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.Storage.S3Bucket,
			Region:       cfg.Storage.S3Region,
			Endpoint:     cfg.Storage.S3Endpoint,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			UsePathStyle: cfg.Storage.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}
}

// newDocumentHandler avoids handing a typed nil audit service to the handler.
func newDocumentHandler(docs *service.DocumentService, audits *service.IndexAuditService, maxBytes int64) *handler.DocumentHandler {
	if audits == nil {
		return handler.NewDocumentHandler(docs, nil, maxBytes)
	}
	return handler.NewDocumentHandler(docs, audits, maxBytes)
}

func readinessChecks(db *sqlx.DB, client *redis.Client, store storage.ObjectStore) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"storage":  store.HealthCheck,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
