package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Trazabilidad-api/internal/application/auth"
	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// RouterDeps dependencias para el router. Gatherer es opcional.
type RouterDeps struct {
	Custody  *custody.Service
	AuthUC   *auth.AuthUseCase
	Gate     CallerResolver
	Gatherer prometheus.Gatherer
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	required := AuthMiddleware(deps.Gate)
	adminOnly := RequireRole(string(entity.RoleAdmin))

	// Auth (público salvo el listado)
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/users", required, adminOnly, authHandler.Users)
	authGroup.Put("/reset-password", required, adminOnly, authHandler.ResetPassword)

	// Products. La autorización fina la aplica el servicio; RequireRole corta antes de leer el cuerpo.
	productHandler := NewProductHandler(deps.Custody)
	products := api.Group("/products")
	products.Get("/scan/:barcode", OptionalAuth(deps.Gate), productHandler.Scan)
	products.Post("/create", required, adminOnly, productHandler.Create)
	products.Put("/transfer", required, RequireRole(string(entity.RoleAdmin), string(entity.RoleUser)), productHandler.Transfer)
	products.Get("/history/:productId", required, adminOnly, productHandler.History)
	products.Get("/history/:productId/pdf", required, adminOnly, productHandler.Report)
	products.Get("/history/:productId/evidence/:seq", required, adminOnly, productHandler.Evidence)
	products.Get("/list", required, adminOnly, productHandler.List)
}
