package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/internal/importer"
	"github.com/rodrigomv/aportes-btc/internal/rates"
	"github.com/rodrigomv/aportes-btc/internal/service"
	"github.com/rodrigomv/aportes-btc/internal/storage/cache"
	"github.com/rodrigomv/aportes-btc/internal/storage/postgres"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct {
	db                *postgres.DB
	cacheService      *cache.RedisCache
	aporteService     *service.AporteService
	statsService      *service.StatsService
	importacaoService *service.ImportacaoService
	backfillService   *service.BackfillService
	monitor           *rates.Monitor
}

func NewHandler(
	db *postgres.DB,
	cacheService *cache.RedisCache,
	aporteService *service.AporteService,
	statsService *service.StatsService,
	importacaoService *service.ImportacaoService,
	backfillService *service.BackfillService,
	monitor *rates.Monitor,
) *Handler {
	return &Handler{
		db:                db,
		cacheService:      cacheService,
		aporteService:     aporteService,
		statsService:      statsService,
		importacaoService: importacaoService,
		backfillService:   backfillService,
		monitor:           monitor,
	}
}

func (h *Handler) ListarAportes(c *fiber.Ctx) error {
	userID := getUserID(c)

	aportes, err := h.aporteService.Listar(c.Context(), userID)
	if err != nil {
		logger.Error("erro ao listar aportes",
			zap.String("user_id", userID),
			zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro ao listar aportes")
	}

	return c.JSON(fiber.Map{
		"aportes": aportes,
		"count":   len(aportes),
	})
}

func (h *Handler) CriarAporte(c *fiber.Ctx) error {
	userID := getUserID(c)

	var req AporteRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErro(c, fiber.StatusBadRequest, "corpo da requisição inválido")
	}

	data, err := time.Parse("2006-01-02", req.DataAporte)
	if err != nil {
		return respondErro(c, fiber.StatusBadRequest, "formato de data inválido (use YYYY-MM-DD)")
	}

	aporte, err := h.aporteService.Criar(c.Context(), userID, service.NovoAporte{
		DataAporte:     data,
		ValorInvestido: req.ValorInvestido,
		Bitcoin:        req.Bitcoin,
		Cotacao:        req.Cotacao,
		Moeda:          domain.Moeda(req.Moeda),
		OrigemAporte:   domain.OrigemAporte(req.OrigemAporte),
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidacao) {
			return respondErro(c, fiber.StatusBadRequest, err.Error())
		}
		logger.Error("erro ao criar aporte",
			zap.String("user_id", userID),
			zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro ao criar aporte")
	}

	return c.Status(fiber.StatusCreated).JSON(aporte)
}

func (h *Handler) AtualizarAporte(c *fiber.Ctx) error {
	userID := getUserID(c)
	id := c.Params("id")

	var req AtualizaAporteRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErro(c, fiber.StatusBadRequest, "corpo da requisição inválido")
	}

	altera := service.AtualizaAporte{
		ValorInvestido: req.ValorInvestido,
		Bitcoin:        req.Bitcoin,
		Cotacao:        req.Cotacao,
	}

	if req.DataAporte != nil {
		data, err := time.Parse("2006-01-02", *req.DataAporte)
		if err != nil {
			return respondErro(c, fiber.StatusBadRequest, "formato de data inválido (use YYYY-MM-DD)")
		}
		altera.DataAporte = &data
	}
	if req.Moeda != nil {
		moeda := domain.Moeda(*req.Moeda)
		altera.Moeda = &moeda
	}
	if req.OrigemAporte != nil {
		origem := domain.OrigemAporte(*req.OrigemAporte)
		altera.OrigemAporte = &origem
	}

	aporte, err := h.aporteService.Atualizar(c.Context(), userID, id, altera)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAporteNaoEncontrado):
			return respondErro(c, fiber.StatusNotFound, "aporte não encontrado")
		case errors.Is(err, domain.ErrValidacao):
			return respondErro(c, fiber.StatusBadRequest, err.Error())
		}
		logger.Error("erro ao atualizar aporte",
			zap.String("id", id),
			zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro ao atualizar aporte")
	}

	return c.JSON(aporte)
}

func (h *Handler) ExcluirAporte(c *fiber.Ctx) error {
	userID := getUserID(c)
	id := c.Params("id")

	if err := h.aporteService.Excluir(c.Context(), userID, id); err != nil {
		if errors.Is(err, service.ErrAporteNaoEncontrado) {
			return respondErro(c, fiber.StatusNotFound, "aporte não encontrado")
		}
		logger.Error("erro ao excluir aporte",
			zap.String("id", id),
			zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro ao excluir aporte")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ExcluirPlanilha(c *fiber.Ctx) error {
	userID := getUserID(c)

	removidos, err := h.aporteService.ExcluirPlanilha(c.Context(), userID)
	if err != nil {
		logger.Error("erro ao excluir aportes de planilha",
			zap.String("user_id", userID),
			zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro ao excluir aportes de planilha")
	}

	return c.JSON(fiber.Map{
		"removidos": removidos,
	})
}

func (h *Handler) ImportarCSV(c *fiber.Ctx) error {
	userID := getUserID(c)

	arquivo, err := c.FormFile("arquivo")
	if err != nil {
		return respondErro(c, fiber.StatusBadRequest, "arquivo é obrigatório (campo 'arquivo')")
	}

	conteudo, err := arquivo.Open()
	if err != nil {
		return respondErro(c, fiber.StatusBadRequest, "erro ao abrir arquivo")
	}
	defer conteudo.Close()

	resultado, err := h.importacaoService.ProcessarCSV(c.Context(), userID,
		arquivo.Filename, arquivo.Size, conteudo)
	if err != nil {
		if errors.Is(err, domain.ErrValidacao) {
			return respondErro(c, fiber.StatusBadRequest, err.Error())
		}
		logger.Error("erro na importação de CSV",
			zap.String("user_id", userID),
			zap.String("arquivo", arquivo.Filename),
			zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro ao importar arquivo")
	}

	return c.JSON(resultado)
}

func (h *Handler) ImportarTexto(c *fiber.Ctx) error {
	var req ImportarTextoRequest
	if err := c.BodyParser(&req); err != nil || req.Texto == "" {
		return respondErro(c, fiber.StatusBadRequest, "texto é obrigatório")
	}

	candidato, campos, err := h.importacaoService.ProcessarTexto(req.Texto)
	if err != nil {
		if errors.Is(err, importer.ErrNenhumDado) {
			return respondErro(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		return respondErro(c, fiber.StatusInternalServerError, "erro ao processar texto")
	}

	resp := NovoCandidatoResponse(candidato)
	resp.CamposExtraidos = campos

	return c.JSON(resp)
}

func (h *Handler) GetEstatisticas(c *fiber.Ctx) error {
	userID := getUserID(c)

	moeda := domain.Moeda(c.Query("moeda", string(domain.MoedaBRL)))
	if !moeda.Valida() {
		return respondErro(c, fiber.StatusBadRequest, fmt.Sprintf("moeda inválida: %s", moeda))
	}

	unidade := domain.UnidadeBtc(c.Query("unidade", string(domain.UnidadeBTC)))
	if unidade != domain.UnidadeBTC && unidade != domain.UnidadeSATS {
		return respondErro(c, fiber.StatusBadRequest, fmt.Sprintf("unidade inválida: %s", unidade))
	}

	stats, err := h.statsService.Estatisticas(c.Context(), userID, moeda, unidade)
	if err != nil {
		logger.Error("erro ao calcular estatísticas",
			zap.String("user_id", userID),
			zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro ao calcular estatísticas")
	}

	return c.JSON(stats)
}

func (h *Handler) GetCotacaoAtual(c *fiber.Ctx) error {
	cotacao, ok := h.monitor.Cotacao()
	if !ok {
		return respondErro(c, fiber.StatusServiceUnavailable, "cotação atual ainda não resolvida")
	}

	return c.JSON(cotacao)
}

func (h *Handler) GetVariacao(c *fiber.Ctx) error {
	variacao, ok := h.monitor.Variacao()
	if !ok {
		return respondErro(c, fiber.StatusServiceUnavailable, "variação de preço ainda não resolvida")
	}

	return c.JSON(variacao)
}

func (h *Handler) RefreshCotacao(c *fiber.Ctx) error {
	if err := h.monitor.Refresh(c.Context()); err != nil {
		return respondErro(c, fiber.StatusBadGateway, "erro ao atualizar cotação")
	}

	cotacao, _ := h.monitor.Cotacao()
	return c.JSON(cotacao)
}

func (h *Handler) ExecutarBackfill(c *fiber.Ctx) error {
	resultado, err := h.backfillService.Executar(c.Context())
	if err != nil {
		logger.Error("erro na varredura de backfill", zap.Error(err))
		return respondErro(c, fiber.StatusInternalServerError, "erro na varredura de backfill")
	}

	return c.JSON(resultado)
}

func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	if h.cacheService == nil {
		return respondErro(c, fiber.StatusServiceUnavailable, "cache desabilitado")
	}

	pattern := c.Params("pattern", "*")

	if err := h.cacheService.DeletePattern(c.Context(), pattern); err != nil {
		return respondErro(c, fiber.StatusInternalServerError, "erro ao invalidar cache")
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("cache invalidado para padrão: %s", pattern),
	})
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth)

	dbStart := time.Now()
	if err := h.db.HealthCheck(ctx); err != nil {
		services["database"] = ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		services["database"] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	services["redis"] = h.redisHealth(ctx)

	status := "ready"
	for _, svc := range services {
		if svc.Status == "unhealthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

// redisHealth tolera o modo sem cache: a API sobe com Redis indisponível e
// o readiness reporta "disabled" sem derrubar a prontidão.
func (h *Handler) redisHealth(ctx context.Context) ServiceHealth {
	if h.cacheService == nil {
		return ServiceHealth{Status: "disabled"}
	}

	start := time.Now()
	if err := h.cacheService.HealthCheck(ctx); err != nil {
		return ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	}

	return ServiceHealth{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {
	dbStats := h.db.Stats()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := SystemStatsResponse{
		Database: DatabaseStats{
			ActiveConnections: dbStats.AcquiredConns(),
			IdleConnections:   dbStats.IdleConns(),
			TotalConnections:  dbStats.TotalConns(),
			WaitCount:         dbStats.EmptyAcquireCount(),
			WaitDuration:      dbStats.AcquireDuration().String(),
		},
		Cache: CacheStats{
			MemoryUsed: fmt.Sprintf("%d MB", m.Alloc/1024/1024),
		},
		API: APIStats{
			ActiveGoroutines: runtime.NumGoroutine(),
		},
	}

	return c.JSON(response)
}

func respondErro(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func getRequestID(c *fiber.Ctx) string {
	if id := c.Locals("requestID"); id != nil {
		return id.(string)
	}
	return ""
}

func getUserID(c *fiber.Ctx) string {
	if id := c.Locals("userID"); id != nil {
		return id.(string)
	}
	return ""
}
