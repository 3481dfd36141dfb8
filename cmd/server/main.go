package main

import (
	"context"
	"log"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/router"
	"github.com/sociuslabs/socius/backend/pkg/config"
	"github.com/sociuslabs/socius/backend/pkg/firebase"
	"github.com/sociuslabs/socius/backend/validators"
)

func main() {
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Firebase login is optional. Without credentials the rest of the API
	// runs normally and only the firebase-login route is absent.
	var firebaseAuth *firebaseauth.Client
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Printf("WARNING: Firebase disabled: %v", err)
		} else {
			firebaseAuth = app.AuthClient
		}
	}

	e := echo.New()
	e.Validator = validators.NewValidator()

	router.SetupMiddleware(e)
	if err := router.SetupRoutes(e, db, cfg, firebaseAuth); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	log.Printf("Starting server on port %s", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
