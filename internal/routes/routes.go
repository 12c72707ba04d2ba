package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"github.com/example/charmntreats/internal/config"
	"github.com/example/charmntreats/internal/handlers"
	"github.com/example/charmntreats/internal/middleware"
	"github.com/example/charmntreats/internal/repository"
	"github.com/example/charmntreats/internal/services"
	"github.com/example/charmntreats/internal/services/mail"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Config    *config.Config
	DB        *gorm.DB
	Accounts  *services.AccountService
	Orders    *services.OrderService
	Customers *repository.CustomerRepository
	Notifier  *services.Notifier
	Mail      *mail.Chain
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Accounts)
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	emailHandler := handlers.NewEmailHandler(deps.Orders, deps.Notifier, deps.Mail)
	profileHandler := handlers.NewProfileHandler(deps.Accounts)
	adminHandler := handlers.NewAdminHandler(deps.Accounts, deps.Orders, deps.Customers)
	catalogHandler := handlers.NewCatalogHandler(deps.DB)
	contentHandler := handlers.NewContentHandler(deps.DB)

	requireCustomer := middleware.RequireCustomer(deps.Config.JWTSecret)
	requireAdmin := middleware.RequireAdmin(deps.Config.JWTSecret)

	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Email relay routes
	api.Post("/send-order-confirmation", emailHandler.SendOrderConfirmation)
	api.All("/send-order-confirmation", handlers.MethodNotAllowed)
	api.Post("/send-otp", authHandler.SendOTP)
	api.Post("/send-email", requireAdmin, emailHandler.SendEmail)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/signup/verify", authHandler.VerifySignup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/password/forgot", authHandler.ForgotPassword)
	auth.Post("/password/reset", authHandler.ResetPassword)
	auth.Get("/otp/remaining", authHandler.OTPRemaining)

	// Order routes
	orders := api.Group("/orders")
	orders.Post("/checkout", orderHandler.Checkout)
	orders.Get("/track/:orderId", orderHandler.Track)
	orders.Get("/", requireCustomer, orderHandler.ListOrders)

	// Profile routes
	profile := api.Group("/profile", requireCustomer)
	profile.Get("/", profileHandler.GetProfile)
	profile.Put("/", profileHandler.UpdateProfile)

	// Catalog and content routes
	api.Get("/products", catalogHandler.ListProducts)
	api.Get("/products/:id", catalogHandler.GetProduct)

	blog := api.Group("/blog")
	blog.Get("/categories", contentHandler.ListBlogCategories)
	blog.Get("/posts", contentHandler.ListBlogPosts)
	blog.Get("/posts/:slug", contentHandler.GetBlogPost)
	blog.Get("/posts/:slug/comments", contentHandler.ListComments)
	blog.Post("/posts/:slug/comments", contentHandler.CreateComment)

	api.Get("/testimonials", contentHandler.ListTestimonials)

	// Admin routes
	api.Post("/admin/login", adminHandler.Login)

	admin := api.Group("/admin", requireAdmin)
	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Put("/orders/:orderId/status", adminHandler.UpdateOrderStatus)
	admin.Get("/customers", adminHandler.ListCustomers)
}
