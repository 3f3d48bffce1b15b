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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ndthanh/qltv-api/api/swagger"
	"github.com/ndthanh/qltv-api/internal/handler"
	"github.com/ndthanh/qltv-api/internal/middleware"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/repository"
	"github.com/ndthanh/qltv-api/internal/service"
	"github.com/ndthanh/qltv-api/pkg/cache"
	"github.com/ndthanh/qltv-api/pkg/config"
	"github.com/ndthanh/qltv-api/pkg/database"
	"github.com/ndthanh/qltv-api/pkg/logger"
	corsmiddleware "github.com/ndthanh/qltv-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ndthanh/qltv-api/pkg/middleware/requestid"
	"github.com/ndthanh/qltv-api/pkg/storage"
)

// @title QLTV API
// @version 1.0.0
// @description Library management API: catalog, identities and the borrow ledger
// @BasePath /api/v1
// @schemes http
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
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The dashboard cache is an optimization, not a dependency.
		sugar.Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	coverStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init upload storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	adminRepo := repository.NewAdminRepository(db)
	librarianRepo := repository.NewLibrarianRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	bookRepo := repository.NewBookRepository(db)
	authorRepo := repository.NewAuthorRepository(db)
	publisherRepo := repository.NewPublisherRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	borrowRepo := repository.NewBorrowRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(adminRepo, librarianRepo, studentRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	bookSvc := service.NewBookService(bookRepo, publisherRepo, coverStore, signer, validate, logr, service.UploadPolicy{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	}, cfg.APIPrefix)
	authorSvc := service.NewAuthorService(authorRepo, validate, logr)
	publisherSvc := service.NewPublisherService(publisherRepo, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	librarianSvc := service.NewLibrarianService(librarianRepo, validate, logr)
	borrowSvc := service.NewBorrowService(borrowRepo, bookRepo, studentRepo, cacheRepo, validate, logr, service.BorrowConfig{
		LoanPeriodDays: cfg.Library.LoanPeriodDays,
		FineRatePerDay: cfg.Library.FineRatePerDay,
	})
	dashboardSvc := service.NewDashboardService(borrowRepo, cacheRepo, metricsSvc, logr, service.DashboardConfig{
		DueSoonWindowDays: cfg.Library.DueSoonWindowDays,
		ListLimit:         cfg.Library.DashboardListLimit,
		CacheTTL:          cfg.Dashboard.CacheTTL,
	})
	exportSvc := service.NewExportService(borrowSvc, exportStore, signer, validate, logr, cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(authSvc)
	bookHandler := handler.NewBookHandler(bookSvc)
	authorHandler := handler.NewAuthorHandler(authorSvc)
	publisherHandler := handler.NewPublisherHandler(publisherSvc)
	categoryHandler := handler.NewCategoryHandler(categorySvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	librarianHandler := handler.NewLibrarianHandler(librarianSvc)
	borrowHandler := handler.NewBorrowHandler(borrowSvc, metricsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	authed := api.Group("", middleware.JWT(authSvc))
	staff := authed.Group("", middleware.RequireStaff())
	adminOnly := authed.Group("", middleware.RequireRoles(models.RoleAdmin))

	books := api.Group("/books")
	{
		books.GET("", bookHandler.List)
		books.GET("/:id", bookHandler.Get)
		books.GET("/:id/download", bookHandler.Download)
	}
	api.GET("/downloads", bookHandler.Ebook)
	staffBooks := staff.Group("/books")
	{
		staffBooks.POST("", bookHandler.Create)
		staffBooks.PUT("/:id", bookHandler.Update)
		staffBooks.DELETE("/:id", bookHandler.Delete)
		staffBooks.POST("/:id/cover", bookHandler.UploadCover)
	}

	registerCatalog := func(path string, list, get, create, update, del gin.HandlerFunc) {
		grp := api.Group(path)
		grp.GET("", list)
		grp.GET("/:id", get)

		writes := staff.Group(path)
		writes.POST("", create)
		writes.PUT("/:id", update)
		writes.DELETE("/:id", del)
	}
	registerCatalog("/authors", authorHandler.List, authorHandler.Get, authorHandler.Create, authorHandler.Update, authorHandler.Delete)
	registerCatalog("/publishers", publisherHandler.List, publisherHandler.Get, publisherHandler.Create, publisherHandler.Update, publisherHandler.Delete)
	registerCatalog("/categories", categoryHandler.List, categoryHandler.Get, categoryHandler.Create, categoryHandler.Update, categoryHandler.Delete)

	borrows := authed.Group("/borrows")
	{
		borrows.POST("", middleware.RequireRoles(models.RoleStudent), borrowHandler.Create)
		borrows.GET("/mine", middleware.RequireRoles(models.RoleStudent), borrowHandler.MyBorrows)
		borrows.GET("", middleware.RequireStaff(), borrowHandler.List)
		borrows.GET("/:id", borrowHandler.Get)
		borrows.POST("/:id/review", middleware.RequireStaff(), borrowHandler.Review)
		borrows.POST("/:id/return", middleware.RequireStaff(), borrowHandler.Return)
	}

	students := staff.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", studentHandler.Create)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", studentHandler.Delete)
	}

	librarians := adminOnly.Group("/librarians")
	{
		librarians.GET("", librarianHandler.List)
		librarians.GET("/:id", librarianHandler.Get)
		librarians.POST("", librarianHandler.Create)
		librarians.PUT("/:id", librarianHandler.Update)
		librarians.DELETE("/:id", librarianHandler.Delete)
	}

	if cfg.Dashboard.Enabled {
		staff.GET("/dashboard/librarian", dashboardHandler.Librarian)
	}

	if cfg.Exports.Enabled {
		staff.POST("/exports/borrows", exportHandler.Create)
		// Downloads authenticate via the signed token in the URL.
		api.GET("/exports/download", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}
	sugar.Infow("server stopped")
}
