package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PayGate/internal/config"
	"PayGate/internal/database"
	"PayGate/internal/server"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the PayGate HTTP API.

Configuration is read from .env and the environment.

Examples:
  paygate serve
  paygate serve --port 9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log.Printf("🔍 Configuration:")
	log.Printf("   STORE_DRIVER: '%s'", cfg.Store.Driver)
	log.Printf("   PROVIDER_MODE: '%s'", cfg.Provider.Mode)
	log.Printf("   MESOMB_APP_KEY: '%s'", config.MaskSecret(cfg.Provider.AppKey))
	log.Printf("   MESOMB_SECRET_KEY: '%s'", config.MaskSecret(cfg.Provider.SecretKey))
	log.Printf("   INTERNAL_WEBHOOK_SECRET: '%s'", config.MaskSecret(cfg.Webhook.InternalSecret))
	log.Printf("   JWT_SECRET: '%s'", config.MaskSecret(cfg.Auth.JWTSecret))

	if cfg.Webhook.Secret == "" {
		log.Println("⚠️  MESOMB_SECRET_KEY not set, every provider webhook will be rejected")
	}

	s, err := database.Open(cfg.Store)
	if err != nil {
		log.Printf("❌ Failed to open store: %v", err)
		return err
	}
	log.Println("✅ Store ready")

	srv, err := server.New(cfg, s, server.Options{})
	if err != nil {
		s.Close()
		return err
	}

	port := cfg.Server.Port
	if servePort != "" {
		port = servePort
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		srv.Shutdown()
		return err
	case sig := <-quit:
		log.Printf("🛑 Received %s, shutting down", sig)
	}

	if err := srv.Shutdown(); err != nil {
		return err
	}
	log.Println("👋 Server stopped")
	return nil
}
