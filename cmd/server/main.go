package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/supplierhub/supplierhub/internal/config"
	"github.com/supplierhub/supplierhub/internal/handlers"
	"github.com/supplierhub/supplierhub/internal/middleware"
	"github.com/supplierhub/supplierhub/internal/repository"
	"github.com/supplierhub/supplierhub/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	redisClient, err := initRedis(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis")
	}

	// Initialize repositories
	supplierRepo := repository.NewSupplierRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	vouchRepo := repository.NewVouchRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	// Initialize services
	codec, err := service.NewTokenCodec(cfg.JWT.SecretKey, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token codec")
	}

	refreshStore := service.NewRefreshTokenStore(redisClient, logger)
	tokenService := service.NewTokenService(codec, refreshStore, supplierRepo, &cfg.JWT, logger)

	deliveryOverride, err := service.ParseDeliveryMode(cfg.Auth.DeliveryMode)
	if err != nil {
		logger.WithError(err).Fatal("Invalid delivery mode configuration")
	}

	authHandlers := handlers.NewAuthHandlers(tokenService, supplierRepo, deliveryOverride, logger)
	vouchHandlers := handlers.NewVouchHandlers(vouchRepo, supplierRepo, logger)

	authMiddleware := middleware.NewAuthMiddleware(codec, supplierRepo, logger)
	router := setupRouter(authHandlers, vouchHandlers, authMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func initRedis(cfg *config.Config, logger *logrus.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client initialized")
	return client, nil
}

func setupRouter(
	authHandlers *handlers.AuthHandlers,
	vouchHandlers *handlers.VouchHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/register", authHandlers.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/login", authHandlers.Login).Methods("POST", "OPTIONS")

	api.HandleFunc("/auth/refresh", authHandlers.Refresh).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("/").Subrouter()
	protected.Use(authMiddleware.RequireAuth)
	protected.HandleFunc("/auth/logout", authHandlers.Logout).Methods("POST")
	protected.HandleFunc("/auth/me", authHandlers.Me).Methods("GET")
	protected.HandleFunc("/vouches", vouchHandlers.Create).Methods("POST")
	protected.HandleFunc("/vouches/{supplier_id}", vouchHandlers.Delete).Methods("DELETE")

	return router
}
