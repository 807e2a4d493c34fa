package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/btube/btube-backend-go/internal/auth"
	"github.com/btube/btube-backend-go/internal/chain"
	"github.com/btube/btube-backend-go/internal/config"
	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/handler"
	"github.com/btube/btube-backend-go/internal/ipfs"
	"github.com/btube/btube-backend-go/internal/middleware"
	"github.com/btube/btube-backend-go/internal/service"
	"github.com/btube/btube-backend-go/pkg/logger"
)

func main() {
	// Local development convenience; ignored when the file is absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close(pool)

	logger.Log.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
	)

	publisher, err := chain.NewPublisher(&cfg.Chain)
	if err != nil {
		// Chain events are telemetry; the ledger serves without them.
		logger.Log.Warn("Chain publisher unavailable, events will be dropped", zap.Error(err))
	} else {
		defer publisher.Close()
	}

	ledger := service.NewInteractionLedger(pool)
	media := service.NewMediaService(
		ipfs.NewClient(ipfs.Config{
			APIAddress: cfg.IPFS.APIAddress,
			Timeout:    cfg.IPFS.Timeout,
		}),
		cfg.Media.PreviewPercentage,
		cfg.Media.TempDir,
	)
	oauth := auth.NewClient(cfg.Coinbase)

	router := buildRouter(cfg, pool, ledger, media, oauth, publisher)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("Server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			_ = server.Close()
			os.Exit(1)
		}

		logger.Log.Info("Server stopped gracefully")
	}
}

// chainPublisher adapts the possibly-nil publisher into the handler interface.
// With no broker connection every event is logged and dropped.
type chainPublisher struct {
	publisher *chain.Publisher
}

func (p chainPublisher) PublishAsync(event *chain.Event) {
	if p.publisher == nil {
		logger.Log.Debug("No chain publisher, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("videoCid", event.VideoCID),
		)
		return
	}
	p.publisher.PublishAsync(event)
}

func buildRouter(
	cfg *config.Config,
	pool *pgxpool.Pool,
	ledger service.InteractionLedger,
	media *service.MediaService,
	oauth *auth.Client,
	publisher *chain.Publisher,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.Media.MaxUploadSize

	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
	})
	router.Use(sessions.Sessions(cfg.Session.Name, store))
	router.Use(middleware.NewMetrics().Handler())

	events := chainPublisher{publisher: publisher}

	videoHandler := handler.NewVideoHandler(ledger, events)
	interactionHandler := handler.NewInteractionHandler(ledger, events)
	commentHandler := handler.NewCommentHandler(ledger)
	mediaHandler := handler.NewMediaHandler(media, cfg.Media.TempDir)
	authHandler := handler.NewAuthHandler(oauth, ledger, cfg.Coinbase.FrontendURL)

	var brokerCheck handler.HealthChecker
	if publisher != nil {
		brokerCheck = publisher
	}
	healthHandler := handler.NewHealthHandler(pool, brokerCheck)

	router.GET("/health", healthHandler.Live)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/auth/login", authHandler.Login)
	router.GET("/auth/callback", authHandler.Callback)

	router.GET("/video", videoHandler.Get)
	router.GET("/videos", videoHandler.List)
	router.GET("/videos/:cid/comments", commentHandler.List)
	router.GET("/user", authHandler.GetUser)

	guarded := router.Group("/", middleware.RequireUser())
	{
		guarded.POST("/upload", videoHandler.Upload)
		guarded.DELETE("/video", videoHandler.Delete)
		guarded.POST("/media", mediaHandler.Store)
		guarded.POST("/like", interactionHandler.Like)
		guarded.POST("/view", interactionHandler.View)
		guarded.GET("/me", authHandler.Me)
		guarded.GET("/logout", authHandler.Logout)
		guarded.GET("/videos/:cid/liked", interactionHandler.HasLiked)
		guarded.POST("/videos/:cid/comments", commentHandler.Add)
		guarded.DELETE("/videos/:cid/comments/:id", commentHandler.Delete)
	}

	return router
}
