package main

import (
	"context"
	"log"
	"strconv"

	"avokati-backend/config"
	"avokati-backend/gemini"
	"avokati-backend/handlers"
	"avokati-backend/logger"
	"avokati-backend/repository"
	"avokati-backend/service"
	"avokati-backend/storage"
	"avokati-backend/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zl := logger.New(cfg.Log.Level, cfg.Log.File, cfg.Env == config.EnvProduction)
	defer zl.Sync()

	ctx := context.Background()

	db, err := initPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to initialize postgres", zap.Error(err))
	}
	defer db.Close()
	zl.Info("postgres connection established")

	library, err := storage.NewLibrary(cfg.Library)
	if err != nil {
		zl.Fatal("failed to initialize library source", zap.Error(err))
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		zl.Fatal("failed to initialize gemini client", zap.Error(err))
	}
	defer geminiClient.Close()
	zl.Info("gemini client initialized", zap.String("model", cfg.Gemini.Model))

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	docRepo := repository.NewDocumentRepository(db)

	documents := service.NewDocumentService(
		service.DocumentsWithStore(docRepo),
		service.DocumentsWithLogger(zl),
		service.DocumentsWithMetrics(metrics),
	)
	if err := documents.Load(ctx); err != nil {
		// The service stays usable with an empty library; the stored
		// documents are simply unavailable until a restart.
		zl.Error("failed to load stored documents", zap.Error(err))
	}

	router := service.NewRouterService(
		service.RouterWithModel(geminiClient),
		service.RouterWithLogger(zl),
		service.RouterWithMetrics(metrics),
	)

	selection := service.NewSelectionService(
		service.SelectionWithDocuments(documents),
		service.SelectionWithRouter(router),
		service.SelectionWithLogger(zl),
		service.SelectionWithMetrics(metrics),
	)

	chat := service.NewChatService(
		service.ChatWithSelection(selection),
		service.ChatWithModel(geminiClient),
		service.ChatWithLogger(zl),
		service.ChatWithMetrics(metrics),
	)

	importer := service.NewImporterService(
		service.ImporterWithLibrary(library),
		service.ImporterWithDocuments(documents),
		service.ImporterWithLogger(zl),
	)

	documentHandler := handlers.NewDocumentHandler(documents)
	chatHandler := handlers.NewChatHandler(chat, selection)
	importHandler := handlers.NewImportHandler(importer)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(handlers.AuthRequired(cfg.Auth.TokenBcryptHash))
	{
		api.POST("/documents", documentHandler.Upload)
		api.GET("/documents", documentHandler.List)
		api.GET("/documents/usage", documentHandler.Usage)
		api.POST("/documents/toggle", documentHandler.ToggleAll)
		api.POST("/documents/:id/toggle", documentHandler.Toggle)
		api.DELETE("/documents/:id", documentHandler.Delete)

		api.GET("/mode", chatHandler.GetMode)
		api.PUT("/mode", chatHandler.SetMode)

		api.POST("/chat/:session/messages", chatHandler.SendMessage)
		api.GET("/chat/:session/messages", chatHandler.ListMessages)

		api.GET("/library", importHandler.ListLibrary)
		api.POST("/library/import", importHandler.Import)
	}

	addr := ":" + strconv.Itoa(cfg.Port)
	zl.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	return pool, nil
}
