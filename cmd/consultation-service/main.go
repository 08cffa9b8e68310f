package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/api/handlers"
	"telehealth-consultation-service/internal/api/middleware"
	"telehealth-consultation-service/internal/app"
	"telehealth-consultation-service/internal/config"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	application, err := app.Init(cfg, logger)
	if err != nil {
		logger.Fatal("initializing application", zap.Error(err))
	}

	fiberApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	fiberApp.Use(middleware.NewRequestLogger(logger))

	identity := middleware.NewIdentity([]byte(cfg.IdentitySecret))
	consultationHandler := handlers.NewConsultationHandler(
		application.ConsultationService,
		application.JoinService,
		application.PaymentService,
		logger,
	)
	auditHandler := handlers.NewAuditHandler(application.AuditService, logger)

	handlers.RegisterHealthRoutes(fiberApp)
	handlers.RegisterConsultationRoutes(fiberApp, consultationHandler, identity)
	handlers.RegisterAuditRoutes(fiberApp, auditHandler, identity)

	go func() {
		logger.Info("consultation service listening", zap.String("port", cfg.Port))
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := fiberApp.Shutdown(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
