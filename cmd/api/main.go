package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/catalog"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/directory"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/ledger"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/handlers"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/services"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/config"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/database"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/utils"

	_ "github.com/dukatrade/whatsapp-commerce-be/cmd/api/docs"
)

// @title WhatsApp Commerce API
// @version 1.0
// @description API documentation for the WhatsApp conversational commerce backend
// @termsOfService http://swagger.io/terms/
// @contact.name API Support
// @contact.email support@dukatrade.com
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger()
	log.Printf("🚀 Starting whatsapp-commerce-api on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init repositories (use GORM instance)
	sessionRepo := repositories.NewSessionRepo(db.GORM)
	orderRepo := repositories.NewOrderRepo(db.GORM)
	messageLogRepo := repositories.NewMessageLogRepo(db.GORM)

	// Init core providers
	catalogProvider := catalog.NewGormProvider(db.GORM)
	customerDirectory := directory.NewGormDirectory(db.GORM)
	salesLedger := ledger.NewGormLedger(db.GORM)

	// Init WhatsApp service
	waService := whatsapp.NewService(cfg.WhatsAppStoreURL)
	log.Printf("📱 Using WhatsApp provider: %s", waService.ProviderName())

	// Init services
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
		log.Fatalf("Failed to start abandoned cart scheduler: %v", err)
	}
	defer abandonedCartService.Stop()

	// Init handlers
	webhookHandler := handlers.NewWebhookHandler(dialogueService, cfg.WhatsAppVerifyToken)
	orderHandler := handlers.NewOrderHandler(orderService, dialogueService)
	gatewayHandler := handlers.NewGatewayHandler(waService, abandonedCartService)
	healthHandler := handlers.NewHealthHandler(waService)

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "WhatsApp Commerce API",
	})

	// Middleware
	app.Use(cors.New())

	// Swagger
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health check
	app.Get("/health", healthHandler.GetHealth)

	// WhatsApp webhook routes (Meta Cloud API)
	app.Get("/whatsapp/webhook", webhookHandler.VerifyWebhook)
	app.Post("/whatsapp/webhook", webhookHandler.ReceiveWebhook)

	// WhatsApp gateway routes
	app.Get("/whatsapp/status", gatewayHandler.Status)
	app.Get("/whatsapp/qr", gatewayHandler.PairingQR)
	app.Post("/whatsapp/abandoned-carts/check", gatewayHandler.TriggerAbandonedCartCheck)

	// Product link routes
	app.Get("/whatsapp/product-link/:itemId", orderHandler.ProductLink)
	app.Get("/whatsapp/product-link/:itemId/qr", orderHandler.ProductLinkQR)

	// Order routes
	app.Post("/orders", orderHandler.CreateOrder)
	app.Get("/orders", orderHandler.ListOrders)
	app.Get("/orders/stats", orderHandler.OrderStats)
	app.Get("/orders/customer/:phone", orderHandler.ListOrdersByPhone)
	app.Get("/orders/:id", orderHandler.GetOrder)
	app.Put("/orders/:id/status", orderHandler.UpdateOrderStatus)
	app.Post("/orders/:id/cancel", orderHandler.CancelOrder)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("✅ whatsapp-commerce-api running at :%s", port)
	log.Printf("📄 Swagger UI: http://localhost:%s/swagger/", port)
	log.Fatal(app.Listen(":" + port))
}
