package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawfinder/pawfinder-api/internal/config"
	"github.com/pawfinder/pawfinder-api/internal/database"
	"github.com/pawfinder/pawfinder-api/internal/handler"
	"github.com/pawfinder/pawfinder-api/internal/middleware"
	"github.com/pawfinder/pawfinder-api/internal/models"
	"github.com/pawfinder/pawfinder-api/internal/repository"
	"github.com/pawfinder/pawfinder-api/internal/router"
	"github.com/pawfinder/pawfinder-api/internal/service"
	cloud "github.com/pawfinder/pawfinder-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Post{}, &models.PostPhoto{}, &models.Comment{}, &models.Favorite{},
		&models.Chat{}, &models.ChatMember{}, &models.Message{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	chatRepo := repository.NewChatRepository(db)

	postService := service.NewPostService(postRepo, uploader, validate, cfg.MaxPhotoSizeMB, logger)
	commentService := service.NewCommentService(commentRepo, postRepo, validate, logger)
	favoriteService := service.NewFavoriteService(favoriteRepo, postRepo, logger)
	chatService := service.NewChatService(chatRepo, postRepo, validate, logger)

	hub := service.NewChatHub(chatService, redisClient, natsConn, cfg.EventChannelBase, logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub.Start(hubCtx)

	postHandler := handler.NewPostHandler(postService, validate, logger)
	commentHandler := handler.NewCommentHandler(commentService, validate, logger)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService, logger)
	chatHandler := handler.NewChatHandler(chatService, hub, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, logger)
	router.Register(app, cfg, router.Dependencies{
		PostHandler:     postHandler,
		CommentHandler:  commentHandler,
		FavoriteHandler: favoriteHandler,
		ChatHandler:     chatHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
		DB:              db,
		Redis:           redisClient,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
