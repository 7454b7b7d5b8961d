package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/catalog"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/directory"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/ledger"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/services"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/config"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/database"
)

// Socket-mode bot. Pairs a WhatsApp account over the multidevice protocol
// and feeds every inbound message to the dialogue engine, no webhook needed.
func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.LoadConfig()
	log.Info().Str("env", cfg.Env).Msg("Starting whatsapp-commerce-bot")

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	sessionRepo := repositories.NewSessionRepo(db.GORM)
	orderRepo := repositories.NewOrderRepo(db.GORM)
	messageLogRepo := repositories.NewMessageLogRepo(db.GORM)

	catalogProvider := catalog.NewGormProvider(db.GORM)
	customerDirectory := directory.NewGormDirectory(db.GORM)
	salesLedger := ledger.NewGormLedger(db.GORM)

	provider := whatsapp.NewWhatsmeowProvider(cfg.WhatsAppStoreURL)
	waService := whatsapp.NewServiceWithProvider(provider)

	sessionService := services.NewSessionService(sessionRepo)
	orderService := services.NewOrderService(db.GORM, orderRepo, catalogProvider, customerDirectory, salesLedger)
	notificationService := services.NewNotificationService(waService, orderRepo)
	orderService.SetNotifier(notificationService)

	dialogueService := services.NewDialogueService(
		sessionService, orderService, catalogProvider, customerDirectory,
		waService, messageLogRepo, cfg.BusinessPhone,
	)

	abandonedCartService := services.NewAbandonedCartService(
		sessionService, sessionRepo, waService,
		time.Duration(cfg.CartReminderHours)*time.Hour,
	)
	if err := abandonedCartService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start abandoned cart scheduler")
	}
	defer abandonedCartService.Stop()

	if err := waService.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect WhatsApp client")
	}

	err := waService.StartListening(func(msg *whatsapp.Inbound) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		dialogueService.HandleIncoming(ctx, msg)
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to start listening")
		return
	}

	log.Info().Msg("Bot is listening for messages")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down...")
	waService.Disconnect()
	log.Info().Msg("Goodbye 👋")
}
