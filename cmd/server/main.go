package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"

	"voicecal/config"
	"voicecal/internal/adapters/auth"
	"voicecal/internal/adapters/email"
	httpdelivery "voicecal/internal/delivery/http"
	"voicecal/internal/delivery/http/controllers"
	"voicecal/internal/delivery/http/middleware"
	"voicecal/internal/repository/postgres"
	"voicecal/internal/services"
)

const serviceTimeout = 10 * time.Second

// @title voicecal API
// @version 1.0
// @description Calendar backend with a recurring-event engine and an assistant command interpreter.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db)
	userRepo := postgres.NewUserRepository(db)

	hasher := auth.NewBcryptHasher(0)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.MailProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}

	emailService := services.NewEmailService(mailer, logger)
	userService := services.NewUserService(userRepo, hasher, issuer, cfg.JWTExpiry, emailService, serviceTimeout)
	calendarService := services.NewCalendarService(eventRepo, serviceTimeout)
	assistantService := services.NewAssistantService(calendarService, nil, logger, serviceTimeout)

	router := httpdelivery.NewRouter(
		controllers.NewAuthController(logger, userService),
		controllers.NewCalendarController(logger, calendarService),
		controllers.NewAssistantController(logger, assistantService),
		verifier,
	)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.Logging(logger, router))

	logger.Info("starting server", "port", cfg.Port, "env", cfg.Environment)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
