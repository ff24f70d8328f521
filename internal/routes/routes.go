package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/winenation/internal/config"
	"github.com/example/winenation/internal/handlers"
	"github.com/example/winenation/internal/middleware"
	"github.com/example/winenation/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	orderService := services.NewOrderService(db, telegramService)
	gatewayService := services.NewTransactPayService(services.TransactPayConfig{
		BaseURL:       cfg.TransactPayBaseURL,
		PublicKey:     cfg.TransactPayPublicKey,
		SecretKey:     cfg.TransactPaySecretKey,
		EncryptionKey: cfg.TransactPayEncryptionKey,
		Encrypt:       cfg.TransactPayEncrypt,
		CallbackURL:   cfg.CallbackBaseURL + "/api/payment/callback",
	})

	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db)
	orderHandler := handlers.NewOrderHandler(db, orderService)
	checkoutHandler := handlers.NewCheckoutHandler(db, orderService, gatewayService)
	paymentHandler := handlers.NewPaymentHandler(orderService, gatewayService)
	profileHandler := handlers.NewProfileHandler(db)
	userHandler := handlers.NewUserHandler(db)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	// One-time bootstrap: open only while no admin account exists.
	auth.Post("/setup-admin", authHandler.SetupAdmin)

	// Public catalog routes
	categories := api.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Get("/:id", catalogHandler.GetCategory)

	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)

	// Gateway-facing payment entry points. Both are unauthenticated: the
	// callback is a bare browser redirect and the webhook is signed only by
	// knowledge of the reference, which is why order lookup is reference-keyed.
	api.Get("/payment/callback", paymentHandler.Callback)
	api.Post("/payment/webhook", paymentHandler.Webhook)

	// Authenticated customer routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/checkout", checkoutHandler.Checkout)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)

	// Back-office routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminOnly())

	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)

	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Put("/products/:id/stock", productHandler.UpdateStock)
	admin.Delete("/products/:id", productHandler.DeleteProduct)

	admin.Get("/orders", orderHandler.ListAllOrders)
	admin.Put("/orders/:id/status", orderHandler.UpdateOrderStatus)

	admin.Get("/users", userHandler.ListUsers)
	admin.Put("/users/:id/role", userHandler.UpdateUserRole)
}
