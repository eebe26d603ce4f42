package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, handler *Handler) {
	// Global middlewares
	app.Use(RequestID())
	app.Use(ErrorHandler())

	// Health checks (sem rate limiting)
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)

	// Metrics endpoint para Prometheus (sem rate limiting)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation (sem rate limiting)
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 - com rate limiting, métricas e identidade do usuário
	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter())
	v1.Use(PrometheusMiddleware())
	v1.Use(UserID())

	// Aporte routes
	aportes := v1.Group("/aportes")
	aportes.Get("/", handler.ListarAportes)
	aportes.Post("/", handler.CriarAporte)
	aportes.Delete("/planilha", handler.ExcluirPlanilha)
	aportes.Post("/import", handler.ImportarCSV)
	aportes.Post("/import/texto", handler.ImportarTexto)
	aportes.Put("/:id", handler.AtualizarAporte)
	aportes.Delete("/:id", handler.ExcluirAporte)

	// Stats e cotações
	v1.Get("/stats", handler.GetEstatisticas)

	rates := v1.Group("/rates")
	rates.Get("/current", handler.GetCotacaoAtual)
	rates.Get("/variation", handler.GetVariacao)
	rates.Post("/refresh", handler.RefreshCotacao)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(BasicAuth())
	admin.Post("/backfill", handler.ExecutarBackfill)
	admin.Delete("/cache/:pattern", handler.InvalidateCache)
	admin.Get("/stats", handler.GetSystemStats)
}

func BasicAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth != "Basic YWRtaW46c2VjcmV0" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
