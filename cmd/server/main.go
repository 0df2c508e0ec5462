package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"community-gov.backend/internal/config"
	"community-gov.backend/internal/infrastructure/audit"
	"community-gov.backend/internal/infrastructure/blockchain"
	"community-gov.backend/internal/infrastructure/cache"
	"community-gov.backend/internal/infrastructure/repositories"
	"community-gov.backend/internal/interfaces/http/handlers"
	"community-gov.backend/internal/interfaces/http/middleware"
	"community-gov.backend/internal/usecases"
	"community-gov.backend/pkg/logger"
	"community-gov.backend/pkg/redis"
)

const auditBufferSize = 256

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("⚠️ Database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("✅ Connected to PostgreSQL via GORM")
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	communityRepo := repositories.NewCommunityRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	questionRepo := repositories.NewQuestionRepository(db)
	voteRepo := repositories.NewVoteRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Chain readers, one per configured network
	clientFactory := blockchain.NewClientFactory(
		cfg.Blockchain.RPCURLs,
		cfg.Blockchain.RegistryAddress,
		cfg.Sync.ChainCallTimeout,
	)

	// Audit trail and community cache
	recorder := audit.NewRecorder(auditRepo, auditBufferSize)
	communityCache := cache.NewCommunityCache(redis.GetClient())

	// Sync engine
	eventProcessor := usecases.NewEventProcessor(cfg.Sync,
		userRepo, communityRepo, membershipRepo, questionRepo, voteRepo,
		communityCache, recorder)
	stateSynchronizer := usecases.NewStateSynchronizer(cfg.Sync,
		cfg.Blockchain.DefaultNetwork, clientFactory,
		userRepo, communityRepo, membershipRepo, questionRepo, voteRepo,
		recorder)
	stateSynchronizer.StartPeriodicSync()

	syncHandler := handlers.NewSyncHandler(eventProcessor, stateSynchronizer, auditRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerAPIV1Routes(r, routeDeps{
		syncHandler: syncHandler,
	})

	log.Println("📋 Registered Routes:")
	for _, route := range r.Routes() {
		log.Printf("   %s %s", route.Method, route.Path)
	}

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		stateSynchronizer.StopPeriodicSync()
		eventProcessor.Close()
		recorder.Close()
	}()

	log.Printf("🚀 Community-Gov Backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/v1", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
