package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"draftly/config"
	"draftly/internal/database"
	"draftly/internal/logger"
	"draftly/internal/router"
	"draftly/pkg/gateway"
	"draftly/pkg/mail"
)

func main() {
	cfg := config.Load()
	appLog := logger.New(cfg.Server.Env)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var gw gateway.Client
	if cfg.Stripe.SecretKey != "" {
		gw = gateway.NewStripeClient(cfg.Stripe.SecretKey)
	} else {
		appLog.Warn("STRIPE_SECRET_KEY not set, using stub payment gateway")
		gw = &gateway.StubClient{}
	}

	var mailer mail.Sender
	if cfg.Mail.Host != "" {
		mailer = mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.Sender)
	} else {
		appLog.Warn("MAIL_SERVER not set, password reset emails disabled")
		mailer = mail.NoopSender{}
	}

	engine := router.Setup(cfg, db, gw, mailer, appLog)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		appLog.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown: %v", err)
	}
	appLog.Info("server stopped")
}
