package router

import (
	"context"
	"log"
	"net/http"
	"strconv"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sociuslabs/socius/backend/internal/handlers"
	"github.com/sociuslabs/socius/backend/internal/middleware"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/notify"
	"github.com/sociuslabs/socius/backend/internal/repositories"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"github.com/sociuslabs/socius/backend/pkg/blobstore"
	"github.com/sociuslabs/socius/backend/pkg/config"
	"github.com/sociuslabs/socius/backend/pkg/mailer"
)

// SetupMiddleware attaches global middleware and the error handler.
func SetupMiddleware(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.LoggerWithConfig(echomw.LoggerConfig{
		Format: "${time_rfc3339} ${method} ${uri} ${status} ${latency_human}\n",
	}))
	e.HTTPErrorHandler = httpErrorHandler
}

// httpErrorHandler renders every error as the standard envelope. Backing
// store failures keep their cause out of the response body.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	code := apperrors.CodeStorage
	message := "internal server error"

	if appErr := apperrors.From(err); appErr != nil {
		status = appErr.Status()
		code = appErr.Code
		message = appErr.Message
		if appErr.Code == apperrors.CodeStorage {
			message = "internal server error"
			c.Logger().Errorf("storage error: %v", appErr)
		}
	} else if httpErr, ok := err.(*echo.HTTPError); ok {
		status = httpErr.Code
		switch status {
		case http.StatusUnauthorized:
			code = apperrors.CodeUnauthorized
		case http.StatusNotFound:
			code = apperrors.CodeNotFound
		case http.StatusBadRequest:
			code = apperrors.CodeValidation
		}
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	} else {
		c.Logger().Errorf("unhandled error: %v", err)
	}

	resErr := c.JSON(status, echo.Map{
		"success": false,
		"error":   echo.Map{"code": code, "message": message},
	})
	if resErr != nil {
		c.Logger().Errorf("failed to write error response: %v", resErr)
	}
}

// SetupRoutes wires repositories and handlers onto the Echo instance.
// firebaseAuth may be nil when Firebase login is not configured.
func SetupRoutes(e *echo.Echo, db *config.DB, cfg *config.Config, firebaseAuth *firebaseauth.Client) error {
	mongoDB := db.Mongo.Database(cfg.MongoDBName)

	if err := db.Postgres.AutoMigrate(&models.Notification{}); err != nil {
		return err
	}

	userRepo := repositories.NewMongoUserRepository(mongoDB)
	postRepo := repositories.NewMongoPostRepository(mongoDB)
	commentRepo := repositories.NewMongoCommentRepository(mongoDB)
	conversationRepo := repositories.NewMongoConversationRepository(mongoDB)
	messageRepo := repositories.NewMongoMessageRepository(mongoDB)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)

	ctx := context.Background()
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := conversationRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := messageRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	maxUploadMB, err := strconv.Atoi(cfg.MaxUploadSizeMB)
	if err != nil || maxUploadMB <= 0 {
		maxUploadMB = 5
	}
	blobStore := blobstore.New(cfg.UploadsDir, "/uploads", blobstore.Constraints{
		MaxSizeBytes: int64(maxUploadMB) << 20,
		AllowedExts:  []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
	})

	var m mailer.Mailer = mailer.NewSMTPMailer(cfg)
	notifier := notify.NewNotifier(notificationRepo)

	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuth, m, cfg.JWTSecret, cfg.BaseURL)
	userHandler := handlers.NewUserHandler(userRepo, blobStore)
	followHandler := handlers.NewFollowHandler(userRepo, notifier)
	postHandler := handlers.NewPostHandler(postRepo, userRepo, blobStore, notifier)
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo, notifier)
	messageHandler := handlers.NewMessageHandler(conversationRepo, messageRepo, userRepo)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	feedHandler := handlers.NewFeedHandler(postRepo, userRepo)

	e.GET("/health", handlers.HealthCheck)
	e.Static("/uploads", cfg.UploadsDir)

	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	authHandler.RegisterAuthRoutes(auth)

	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	authHandler.RegisterMeRoute(protected)
	userHandler.RegisterUserRoutes(protected)
	followHandler.RegisterFollowRoutes(protected)
	postHandler.RegisterPostRoutes(protected)
	commentHandler.RegisterCommentRoutes(protected)
	messageHandler.RegisterMessageRoutes(protected)
	notificationHandler.RegisterNotificationRoutes(protected)
	feedHandler.RegisterFeedRoutes(protected)

	log.Println("Routes registered")
	return nil
}
