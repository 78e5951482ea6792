package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tradelog/internal/auth"
	"tradelog/internal/config"
	"tradelog/internal/database"
	"tradelog/internal/mailer"
	"tradelog/internal/routes"
	"tradelog/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	messages, err := config.LoadMessages(cfg.MessagesFile)
	if err != nil {
		log.Fatalf("messages config error: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	if err := database.SeedAdmin(db, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	authService, err := auth.NewService(auth.Config{
		Secret:        cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		RememberMeTTL: cfg.RememberMeTokenTTL,
	}, auth.NewGormTokenStore(db), auth.NewGormUserStore(db))
	if err != nil {
		log.Fatalf("auth service setup failed: %v", err)
	}

	hub := ws.NewEventHub()
	go hub.Run()

	r := gin.Default()
	routes.Register(r, routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Messages: messages,
		Auth:     authService,
		Mailer:   mailer.New(cfg.MailerURI),
		Hub:      hub,
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Println("server exited with error:", err)
		os.Exit(1)
	}
}
