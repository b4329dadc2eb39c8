package handler

import (
	"go-fulfillment-ws/internal/middleware"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/internal/service"
	"go-fulfillment-ws/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Users     repository.UserRepository
	Tokens    *jwt.Manager
	Auth      service.AuthService
	User      service.UserService
	Catalog   service.CatalogService
	Orders    service.OrderService
	Dashboard service.DashboardService
}

// Register mounts the /api/v1 routes on app.
func Register(app *fiber.App, s Services) {
	authHandler := NewAuthHandler(s.Auth)
	userHandler := NewUserHandler(s.User)
	roleHandler := NewRoleHandler()
	catalogHandler := NewCatalogHandler(s.Catalog)
	orderHandler := NewOrderHandler(s.Orders)
	dashHandler := NewDashboardHandler(s.Dashboard)

	requireAuth := middleware.RequireAuth(s.Users, s.Tokens)
	can := middleware.RequirePrivilege

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", requireAuth, authHandler.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	// Dashboard
	protected.Get("/dashboard/stats", can(model.PrivDashboardView), dashHandler.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", can(model.PrivDashboardView), dashHandler.GetStockMovement)

	// Products
	protected.Get("/products", can(model.PrivProductView), catalogHandler.GetProducts)
	protected.Get("/products/scan/:code", can(model.PrivProductView), catalogHandler.GetProductByScanCode)
	protected.Get("/products/:id", can(model.PrivProductView), catalogHandler.GetProduct)
	protected.Get("/products/:id/movements", can(model.PrivProductView), catalogHandler.GetProductMovements)
	protected.Post("/products/import", middleware.RequireAnyPrivilege(model.PrivProductCreate, model.PrivProductUpdate), catalogHandler.ImportProducts)
	protected.Post("/products", can(model.PrivProductCreate), catalogHandler.CreateProduct)
	protected.Put("/products/:id", can(model.PrivProductUpdate), catalogHandler.UpdateProduct)
	protected.Delete("/products/:id", can(model.PrivProductDelete), catalogHandler.DeleteProduct)

	// Orders
	protected.Get("/orders", can(model.PrivOrderView), orderHandler.GetOrders)
	protected.Get("/orders/:id", can(model.PrivOrderView), orderHandler.GetOrder)
	protected.Get("/orders/:id/status", can(model.PrivOrderView), orderHandler.GetOrderStatus)
	protected.Get("/orders/:id/movements", can(model.PrivOrderView), orderHandler.GetOrderMovements)
	protected.Post("/orders", can(model.PrivOrderCreate), orderHandler.CreateOrder)
	protected.Put("/orders/:id", can(model.PrivOrderUpdate), orderHandler.UpdateOrder)
	protected.Patch("/orders/:id/status", middleware.RequireAnyPrivilege(model.PrivOrderUpdateStatus, model.PrivOrderUpdate), orderHandler.MoveOrder)
	protected.Post("/orders/:id/cancel", can(model.PrivOrderCancel), orderHandler.CancelOrder)
	protected.Delete("/orders/:id", can(model.PrivOrderDelete), orderHandler.DeleteOrder)

	// Users
	protected.Get("/users", can(model.PrivUserView), userHandler.GetUsers)
	protected.Get("/users/:id", can(model.PrivUserView), userHandler.GetUser)
	protected.Post("/users", can(model.PrivUserCreate), userHandler.CreateUser)
	protected.Put("/users/:id", can(model.PrivUserUpdate), userHandler.UpdateUser)
	protected.Delete("/users/:id", can(model.PrivUserDelete), userHandler.DeleteUser)

	// Roles
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", roleHandler.GetPrivileges)
}
