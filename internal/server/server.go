// Package server wires configuration, storage and services into the Fiber app.
package server

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"PayGate/internal/config"
	"PayGate/internal/handlers"
	"PayGate/internal/routes"
	"PayGate/internal/services"
	"PayGate/internal/store"
)

const Version = "1.0"

type Server struct {
	App       *fiber.App
	Store     store.Store
	Processor *services.WebhookProcessor
}

// Options replaces collaborators that are normally built from the config.
type Options struct {
	Provider services.PaymentProvider
	Receipts services.ReceiptMailer
}

func New(cfg *config.Config, s store.Store, opts Options) (*Server, error) {
	var deliveries store.DeliveryLog
	if dl, ok := s.(store.DeliveryLog); ok {
		deliveries = dl
	}
	var records store.NotificationLog
	if nl, ok := s.(store.NotificationLog); ok {
		records = nl
	}

	provider := opts.Provider
	if provider == nil {
		provider = services.NewProvider(cfg.Provider)
	}
	receipts := opts.Receipts
	if receipts == nil && cfg.Email.ResendAPIKey != "" {
		receipts = services.NewEmailService(cfg.Email, cfg.Server.FrontendURL)
	}

	notifier := services.NewNotificationService(records)
	relay := services.NewRelay(cfg.Webhook.InternalSecret, cfg.Webhook.InternalAPIKey, cfg.Webhook.RelayTimeout, deliveries)

	payments, err := services.NewPaymentService(cfg.Payment, s, provider, notifier)
	if err != nil {
		return nil, err
	}
	processor := services.NewWebhookProcessor(services.WebhookConfig{
		Secret:         cfg.Webhook.Secret,
		InternalSecret: cfg.Webhook.InternalSecret,
		Strict:         cfg.Webhook.StrictTransitions,
	}, services.WebhookDeps{
		Transactions: s,
		Merchants:    s,
		Customers:    notifier,
		Relay:        relay,
		Receipts:     receipts,
	})

	if cfg.Webhook.StrictTransitions {
		log.Println("🔒 Strict status transitions enabled")
	}

	h := handlers.New(payments, processor, s, handlers.HealthInfo{
		Service:            "PayGate",
		Version:            Version,
		ProviderMode:       cfg.Provider.Mode,
		ProviderConfigured: cfg.Provider.Mode == config.ModeSandbox || cfg.Provider.Configured(),
		WebhookSecretSet:   cfg.Webhook.Secret != "",
	})

	app := fiber.New(fiber.Config{
		AppName:      "PayGate API v" + Version,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Api-Key",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.SetupRoutes(app, h, routes.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		Merchants: s,
	})

	return &Server{App: app, Store: s, Processor: processor}, nil
}

func (s *Server) Listen(port string) error {
	log.Printf("🚀 PayGate server starting on http://localhost:%s", port)
	return s.App.Listen(":" + port)
}

// Shutdown stops accepting requests, waits for in-flight merchant
// notifications and closes the store.
func (s *Server) Shutdown() error {
	err := s.App.Shutdown()
	s.Processor.Wait()
	if cerr := s.Store.Close(); err == nil {
		err = cerr
	}
	return err
}
