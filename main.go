package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"payment-service/config"
	"payment-service/controllers"
	"payment-service/database"
	"payment-service/logger"
	"payment-service/repository"
	"payment-service/routes"
	"payment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to load config:", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	client, db, err := database.Connect(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to connect to DB:", err)
	}
	defer database.Close(client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal("[PaymentService] ❌ Failed to create indexes:", err)
	}

	paymentRepo := repository.NewMongoPaymentRepo(db)
	taskRepo := repository.NewMongoSyncTaskRepo(db)

	payhereSvc := services.NewPayHereService(cfg.PayHereMerchantID, cfg.PayHereMerchantSecret)
	geocoder := services.NewGeocodingClient(cfg.GeocodingBaseURL, cfg.GeocodingAPIKey, zlog)
	orderClient := services.NewOrderClient(cfg.OrderServiceURL)

	// Outbox dispatcher for order-service propagation.
	worker := services.NewOrderSyncWorker(taskRepo, orderClient, zlog)
	worker.Start(ctx)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(zlog))

	pc := &controllers.PaymentController{
		Repo:     paymentRepo,
		Tasks:    taskRepo,
		PayHere:  payhereSvc,
		Geocoder: geocoder,
		Orders:   orderClient,
		Config:   cfg,
		Logger:   zlog,
	}
	routes.RegisterPaymentRoutes(r, pc, cfg.JWTSecret)

	zlog.Info("payment service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[PaymentService] ❌ Server failed:", err)
	}
}
