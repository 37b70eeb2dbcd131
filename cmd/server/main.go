package main

import (
	"strings"

	"ferreteria-backend/internal/audit"
	"ferreteria-backend/internal/auth"
	"ferreteria-backend/internal/catalog"
	"ferreteria-backend/internal/config"
	"ferreteria-backend/internal/credit"
	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/logger"
	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/orders"
	"ferreteria-backend/internal/repository"
	"ferreteria-backend/internal/reports"
	"ferreteria-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup("info")
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)
	database.Init(cfg)

	// Núcleo: repositorios + servicios
	store := repository.NewGormStore(database.DB)
	recorder := audit.NewService(database.DB)
	ledger := stock.NewLedger(store, store)
	orderService := orders.NewService(store, store, store, store, ledger, recorder)
	allocator := credit.NewAllocator(store, store, store, recorder)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Error().Err(err).Str("path", c.Path()).Msg("error inesperado")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error inesperado del servidor",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Auth pública
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/register", auth.RegisterCustomerHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Rutas protegidas
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Catálogo (lectura para cualquier usuario autenticado)
	protected.Get("/products", catalog.ListProductsHandler())
	protected.Get("/categories", catalog.ListCategoriesHandler())
	protected.Get("/branches", catalog.ListBranchesHandler())

	// Checkout web y pedidos del cliente
	protected.Post("/checkout", orders.CheckoutHandler(orderService))
	protected.Get("/orders", orders.MyOrdersHandler())
	protected.Post("/orders/:id/cancel", orders.CancelOrderHandler(orderService))
	protected.Get("/orders/:id/total", orders.OrderTotalHandler(orderService))

	// Mostrador y gestión comercial (personal de tienda)
	staff := protected.Group("")
	staff.Use(auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleSeller))
	staff.Post("/pos/sales", orders.CounterSaleHandler(orderService))
	staff.Post("/abonos", credit.RegisterAbonoHandler(allocator))
	staff.Get("/clientes", credit.ListCustomersWithDebtHandler())
	staff.Get("/stock", stock.ListStockHandler())
	staff.Get("/stock/alerts", stock.LowStockAlertHandler())
	staff.Get("/reports/corte-caja", reports.CorteCajaHandler())

	// Administración
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin, models.RoleManager))
	adminRoutes.Post("/products", catalog.CreateProductHandler(recorder))
	adminRoutes.Put("/products/:id", catalog.UpdateProductHandler(recorder))
	adminRoutes.Post("/categories", catalog.CreateCategoryHandler())
	adminRoutes.Post("/branches", catalog.CreateBranchHandler())
	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Post("/stock", stock.UpsertStockHandler())
	adminRoutes.Get("/orders", orders.AdminListOrdersHandler())
	adminRoutes.Put("/orders/:id/estado", orders.UpdateOrderStateHandler(orderService))
	adminRoutes.Get("/reports/ventas", reports.SalesReportHandler())
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Info().Str("port", cfg.HTTPPort).Msg("Servidor escuchando")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal().Err(err).Msg("el servidor terminó con error")
	}
}
