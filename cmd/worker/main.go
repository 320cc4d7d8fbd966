package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"casino-engine/internal/database"
	"casino-engine/internal/events"
	"casino-engine/internal/games"
	"casino-engine/internal/logger"
	"casino-engine/internal/notify"
	"casino-engine/internal/services"
	"casino-engine/internal/worker"
)

func main() {
	// Load env
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found in ../../.env, trying .env")
		if err := godotenv.Load(".env"); err != nil {
			log.Println("No .env file found, using system env")
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	zlog, err := logger.New("casino-engine-worker", env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Connect DB
	database.Connect()
	db := database.DB

	// Redis
	redisAddr := os.Getenv("REDIS_URL")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	asynqClient := asynq.NewClient(redisOpt)
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

	// Services: iterations settled here chain their successors back onto
	// the same queue.
	registry := games.NewRegistry(games.DefaultConfig())
	seedService := services.NewSeedService(db, zlog)
	settlementService := services.NewSettlementService(db, seedService, registry, publisher, zlog)

	delay := time.Second
	if ms, err := strconv.Atoi(os.Getenv("AUTOBET_DELAY_MS")); err == nil && ms > 0 {
		delay = time.Duration(ms) * time.Millisecond
	}

	loopDriver := services.NewLoopDriver(zlog)
	notifier := notify.NewRedisNotifier(redisClient)
	autobetService := services.NewAutoBetService(db, settlementService, registry,
		worker.NewAsynqDriver(asynqClient), loopDriver, notifier, zlog, delay)
	loopDriver.Bind(autobetService)

	log.Println("Starting Asynq Worker...")
	worker.StartWorker(redisOpt, autobetService)
}
