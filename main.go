package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"casino-engine/internal/database"
	"casino-engine/internal/events"
	"casino-engine/internal/games"
	"casino-engine/internal/handlers"
	"casino-engine/internal/logger"
	"casino-engine/internal/notify"
	"casino-engine/internal/services"
	"casino-engine/internal/worker"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	zlog, err := logger.New("casino-engine", env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize Database
	database.Connect()
	database.Migrate()
	db := database.DB

	// Redis (asynq queue + push notifications)
	redisAddr := os.Getenv("REDIS_URL")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer asynqClient.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	// Kafka domain events
	var publisher events.Publisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kp := events.NewKafkaPublisher(strings.Split(brokers, ","))
		defer kp.Close()
		publisher = kp
	}

	// Core services
	registry := games.NewRegistry(games.DefaultConfig())
	seedService := services.NewSeedService(db, zlog)
	settlementService := services.NewSettlementService(db, seedService, registry, publisher, zlog)

	delay := time.Second
	if ms, err := strconv.Atoi(os.Getenv("AUTOBET_DELAY_MS")); err == nil && ms > 0 {
		delay = time.Duration(ms) * time.Millisecond
	}

	loopDriver := services.NewLoopDriver(zlog)
	var primary services.IterationDriver = worker.NewAsynqDriver(asynqClient)
	if os.Getenv("AUTOBET_DRIVER") == "loop" {
		primary = loopDriver
	}

	notifier := notify.NewRedisNotifier(redisClient)
	autobetService := services.NewAutoBetService(db, settlementService, registry, primary, loopDriver, notifier, zlog, delay)
	loopDriver.Bind(autobetService)

	autobetService.StartReaper(10 * time.Minute)
	defer autobetService.StopReaper()

	// Handlers
	betHandler := handlers.NewBetHandler(db, settlementService)
	autobetHandler := handlers.NewAutoBetHandler(autobetService)
	fairnessHandler := handlers.NewFairnessHandler(seedService, registry)

	// Initialize Gin
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Welcome to the casino settlement engine",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/bets", betHandler.PlaceBet)
	r.GET("/bets", betHandler.ListBets)
	r.GET("/wallets/balance", betHandler.GetWallet)

	r.POST("/autobet/start", autobetHandler.Start)
	r.POST("/autobet/stop", autobetHandler.Stop)
	r.GET("/autobet/status", autobetHandler.Status)

	r.GET("/fairness/commitment", fairnessHandler.GetCommitment)
	r.POST("/fairness/rotate", fairnessHandler.RotateSeed)
	r.POST("/fairness/verify", fairnessHandler.Verify)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("HTTP Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
