package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	_ "chatter_service/cmd/chatter_service/docs" // 引入生成的 Swagger 文档
	"chatter_service/internal/chatter/app"
	"chatter_service/internal/chatter/domain"
	"chatter_service/internal/chatter/repository"
	"chatter_service/internal/chatter/router"
	"chatter_service/pkg/config"
	"chatter_service/pkg/database"
	"chatter_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatterService, config.EnvConfig.ChatterServiceLogPath)
	cfg := config.LoadConfig[config.Chatter](config.EnvConfig.ChatterService, config.EnvConfig.ChatterServiceYAMLPath)

	// 1. 建立 Mongo 連線 (users / messages 兩個 collection)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. 建立 Redis 連線 (session store)
	redisRepo, err := database.NewRedisRepository[domain.UserSession](cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 3. Kafka journal，brokers 留空表示停用
	var journal repository.EventJournal
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
		}
		defer writer.Close()
		journal = repository.NewKafkaEventJournal(writer)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewMongoUserRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)

	// 5. Presence registry 隨 server 建立，server 結束即回收
	presence := app.NewPresenceRegistry()

	// 6. 初始化 UseCases
	authUC := app.NewAuthUseCase(userRepo, cfg.SessionTTL, redisRepo)
	deliveryUC := app.NewDeliveryUseCase(msgRepo, presence, journal)
	conversationUC := app.NewConversationUseCase(msgRepo)

	// 7. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatterServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 注册路由
	router.RegisterRoutes(r,
		app.NewAuthHandler(authUC),
		app.NewQueryHandler(conversationUC, deliveryUC, userRepo),
		app.NewChatterWebsocketHandler(deliveryUC, presence),
	)

	// Listen
	port := ":" + cfg.Port
	log.Printf("Chatter Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
