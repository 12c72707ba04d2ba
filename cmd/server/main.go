package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/charmntreats/internal/config"
	"github.com/example/charmntreats/internal/database"
	"github.com/example/charmntreats/internal/handlers"
	"github.com/example/charmntreats/internal/localstore"
	"github.com/example/charmntreats/internal/repository"
	"github.com/example/charmntreats/internal/routes"
	"github.com/example/charmntreats/internal/services"
	"github.com/example/charmntreats/internal/services/mail"
)

const mailTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, migrated := database.Connect(cfg.DatabaseURL)
	if !migrated {
		go database.RetryMigrate(ctx, db, cfg.MigrateRetryInterval)
	}

	local, err := localstore.New(cfg.LocalStoreDir)
	if err != nil {
		log.Fatalf("local store: %v", err)
	}

	var otpStore services.OTPStore = services.NewMemoryOTPStore()
	if cfg.OTPBackend == "database" {
		otpStore = services.NewGormOTPStore(db)
	}
	otp := services.NewOTPService(otpStore)
	otp.StartSweeper(ctx, cfg.OTPSweepInterval)

	chain := mail.NewChain(
		mail.NewRelayProvider(cfg.EmailRelayURL, mailTimeout),
		mail.NewBrevoProvider(cfg.BrevoAPIKey, cfg.BrevoAPIURL, mail.Sender{Name: cfg.MailSenderName, Email: cfg.MailSenderEmail}, mailTimeout),
		mail.NewSMTPProvider(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailSenderEmail,
		}),
	)

	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	notifier := services.NewNotifier(chain, cfg.StoreOwnerEmail, cfg.EmailSendDelay, telegram)

	customers := repository.NewCustomerRepository(db, local)
	orderRepo := repository.NewOrderRepository(repository.NewGormOrderPrimary(db), local)
	builder := services.NewOrderBuilder(services.ShippingPolicy{
		FreeThreshold: cfg.FreeShippingThreshold,
		FlatFee:       cfg.ShippingFlatFee,
	})

	accounts := services.NewAccountService(customers, otp, notifier, services.AuthConfig{
		JWTSecret:         cfg.JWTSecret,
		TokenTTL:          cfg.TokenExpires,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
	})
	orders := services.NewOrderService(builder, orderRepo, customers, notifier)

	app := fiber.New(fiber.Config{
		AppName:      "Charmntreats Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, routes.Dependencies{
		Config:    cfg,
		DB:        db,
		Accounts:  accounts,
		Orders:    orders,
		Customers: customers,
		Notifier:  notifier,
		Mail:      chain,
	})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
