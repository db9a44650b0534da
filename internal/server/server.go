package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"anoa.com/innoliber/internal/config"
	"anoa.com/innoliber/internal/middleware"
	"anoa.com/innoliber/internal/scheduler"
	"anoa.com/innoliber/pkg/jwtutil"
	"anoa.com/innoliber/pkg/logger"
	"anoa.com/innoliber/pkg/metrics"
	"anoa.com/innoliber/pkg/password"
	"anoa.com/innoliber/pkg/storage"

	analysisHttp "anoa.com/innoliber/internal/modules/analysis/delivery/http"
	analysisService "anoa.com/innoliber/internal/modules/analysis/service"

	attachmentHttp "anoa.com/innoliber/internal/modules/attachment/delivery/http"
	attachmentService "anoa.com/innoliber/internal/modules/attachment/service"

	eventHttp "anoa.com/innoliber/internal/modules/event/delivery/http"
	eventService "anoa.com/innoliber/internal/modules/event/service"

	proposalHttp "anoa.com/innoliber/internal/modules/proposal/delivery/http"
	proposalRepo "anoa.com/innoliber/internal/modules/proposal/repository"
	proposalService "anoa.com/innoliber/internal/modules/proposal/service"

	searchHttp "anoa.com/innoliber/internal/modules/search/delivery/http"
	searchService "anoa.com/innoliber/internal/modules/search/service"

	statHttp "anoa.com/innoliber/internal/modules/stat/delivery/http"
	statService "anoa.com/innoliber/internal/modules/stat/service"

	userHttp "anoa.com/innoliber/internal/modules/user/delivery/http"
	userRepo "anoa.com/innoliber/internal/modules/user/repository"
	userService "anoa.com/innoliber/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	cfg         *config.Config
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	httpServer  *http.Server
	scheduler   *scheduler.Scheduler
	closers     []func() error
}

// NewServer builds every module. redisClient may be nil; search and file
// storage are only enabled when their config is present.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	log := logger.Get()

	tokens := jwtutil.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	hasher := password.Hasher{Cost: cfg.BcryptCost}

	var meiliSvc searchService.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		meiliSvc = searchService.NewMeiliSearchService(meiliClient)
	} else {
		log.Info("MEILISEARCH_HOST not set, proposal search disabled")
	}

	var fileStorage storage.FileStorage
	cldCfg := storage.CloudinaryConfig{
		URL:       cfg.CloudinaryURL,
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
	}
	if cldCfg.Enabled() {
		fs, err := storage.NewCloudinaryStorage(cldCfg)
		if err != nil {
			log.Error("failed to initialize cloudinary storage, attachments disabled", zap.Error(err))
		} else {
			fileStorage = fs
		}
	} else {
		log.Info("cloudinary not configured, attachments disabled")
	}

	var analyzer analysisService.Analyzer
	var closers []func() error
	if cfg.GeminiAPIKey != "" {
		gemini, err := analysisService.NewGeminiAnalyzer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error("failed to initialize gemini client, proposal analysis disabled", zap.Error(err))
		} else {
			analyzer = gemini
			closers = append(closers, gemini.Close)
		}
	} else {
		log.Info("GEMINI_API_KEY not set, proposal analysis disabled")
	}

	userRepository := userRepo.NewUserRepository(db)
	gate := userService.NewGate(userRepository, tokens)
	authSvc := userService.NewAuthService(userRepository, hasher, tokens)
	authHandler := userHttp.NewAuthHandler(authSvc)

	proposalRepository := proposalRepo.NewRepository(db)

	statSvc := statService.NewStatService(proposalRepository, redisClient, cfg.StatsCacheTTL)
	statHandler := statHttp.NewStatHandler(statSvc)

	eventSvc := eventService.NewEventService(redisClient)
	eventHandler := eventHttp.NewEventHandler(eventSvc, cfg.AllowedOrigins)

	proposalSvc := proposalService.NewService(proposalRepository, userRepository, statSvc, eventSvc, meiliSvc)
	proposalHandler := proposalHttp.NewProposalHandler(proposalSvc)

	searchHandler := searchHttp.NewSearchHandler(meiliSvc)

	attachmentSvc := attachmentService.NewAttachmentService(proposalSvc, fileStorage, cfg.CloudinaryUploadFolder)
	attachmentHandler := attachmentHttp.NewAttachmentHandler(attachmentSvc)

	analysisSvc := analysisService.NewAnalysisService(proposalSvc, analyzer)
	analysisHandler := analysisHttp.NewAnalysisHandler(analysisSvc)

	jobs := scheduler.New()
	if meiliSvc != nil {
		reindex := searchService.NewReindexJob(proposalRepository, meiliSvc, cfg.SearchReindexSchedule)
		if err := jobs.Register(reindex); err != nil {
			log.Error("failed to register search reindex job", zap.Error(err))
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Register()

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.Middleware("/health", "/metrics"))
	router.Use(metrics.Middleware())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": cfg.AppName + " API Service",
			"version": cfg.AppVersion,
			"status":  "running",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "innoliber-backend"})
	})
	router.GET("/metrics", metrics.Handler())

	authMiddleware := middleware.NewAuthMiddleware(gate)

	api := router.Group("/api/v1")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", authMiddleware.RequireActiveUser(), authHandler.Me)
	}

	proposals := api.Group("/proposals")
	proposals.Use(authMiddleware.RequireActiveUser())
	{
		proposals.GET("", proposalHandler.GetProposals)
		proposals.POST("", proposalHandler.CreateProposal)
		proposals.GET("/statistics", statHandler.GetProposalStatistics)
		proposals.GET("/search", searchHandler.SearchProposals)
		proposals.GET("/events/ws", eventHandler.Stream)
		proposals.GET("/:id", proposalHandler.GetProposal)
		proposals.PUT("/:id", proposalHandler.UpdateProposal)
		proposals.DELETE("/:id", proposalHandler.DeleteProposal)
		proposals.POST("/:id/duplicate", proposalHandler.DuplicateProposal)
		proposals.POST("/:id/attachments", attachmentHandler.UploadAttachment)
		proposals.POST("/:id/analyze", analysisHandler.AnalyzeProposal)
	}

	return &Server{
		cfg:         cfg,
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   jobs,
		closers:     closers,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	s.scheduler.Start()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains HTTP and background jobs before releasing clients they use.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.scheduler.Stop(ctx)

	for _, closeFn := range s.closers {
		if closeErr := closeFn(); closeErr != nil {
			logger.Get().Warn("failed to release client", zap.Error(closeErr))
		}
	}
	return err
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
