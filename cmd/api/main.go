package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"resaleo/internal/adapter/api"
	"resaleo/internal/adapter/api/handler"
	apimiddleware "resaleo/internal/adapter/api/middleware"
	"resaleo/internal/adapter/api/router"
	"resaleo/internal/adapter/repository"
	"resaleo/internal/infrastructure/storage"
	"resaleo/internal/infrastructure/websocket"
	"resaleo/internal/usecase"
	"resaleo/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	credentialsPath := ""

	// Service account JSON from the environment wins (production);
	// otherwise fall back to a key file path (local development).
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if path := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", path)
		}
		log.Printf("Using Firebase service account from file: %s", path)
		opts = append(opts, option.WithCredentialsFile(path))
		credentialsPath = path
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, credentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)
	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)

	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, listingRepo)

	wsManager := websocket.NewManager(chatRepo)
	wsManager.Start(ctx)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
	}))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)
	adminMiddleware := apimiddleware.NewAdminMiddleware(userRepo)

	handlers := router.Handlers{
		Chat:      handler.NewChatHandler(chatUseCase),
		Upload:    handler.NewUploadHandler(storageClient, cfg.MaxUploadBytes),
		Admin:     handler.NewAdminHandler(chatUseCase),
		WebSocket: handler.NewWebSocketHandler(wsManager, authMiddleware, cfg.ClientOrigin),
		Health:    handler.NewHealthHandler(),
	}

	router.Setup(e, handlers, authMiddleware, adminMiddleware)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
