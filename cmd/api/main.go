package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	"github.com/rodrigomv/aportes-btc/internal/api"
	"github.com/rodrigomv/aportes-btc/internal/config"
	"github.com/rodrigomv/aportes-btc/internal/importer"
	"github.com/rodrigomv/aportes-btc/internal/rates"
	"github.com/rodrigomv/aportes-btc/internal/service"
	"github.com/rodrigomv/aportes-btc/internal/storage/cache"
	"github.com/rodrigomv/aportes-btc/internal/storage/postgres"
	pkglogger "github.com/rodrigomv/aportes-btc/pkg/logger"
)

// @title Aportes BTC API
// @version 1.0
// @description API para acompanhamento de aportes em Bitcoin (DCA)

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		log.Fatal("Erro ao inicializar logger:", err)
	}
	defer pkglogger.Close()

	db, err := connectPostgres(cfg)
	if err != nil {
		log.Fatal("Erro ao conectar PostgreSQL:", err)
	}
	defer db.Close()

	cacheService := connectRedis(cfg)
	if cacheService != nil {
		defer cacheService.Close()
	}

	// Cotações
	historico := rates.NewClienteAwesome(cfg.CotacaoHistoricaURL, cfg.CotacaoFetchTimeout)
	resolver := rates.NewResolver(historico)

	coingecko := rates.NewClienteCoinGecko(cfg.CotacaoAtualURL, cfg.CotacaoFetchTimeout)
	monitor := rates.NewMonitor(coingecko)

	// Services
	aporteService := service.NewAporteService(db.Pool(), cacheService, resolver)
	statsService := service.NewStatsService(aporteService, monitor, cacheService)
	backfillService := service.NewBackfillService(db.Pool(), resolver, cacheService)

	gate := importer.NewGate(cfg.ImportMaxSizeMB, cfg.ImportExtensions)
	importacaoService := service.NewImportacaoService(
		db.Pool(),
		gate,
		importer.NewParserCSV(),
		importer.NewParserTexto(),
		resolver,
		aporteService,
		cfg.ImportBatchSize,
	)

	// Atualização periódica da cotação: primeira busca na subida, depois a
	// cada intervalo. Refresh manual e periódico podem correr; o último vence.
	if err := monitor.Refresh(context.Background()); err != nil {
		log.Printf("⚠️ Cotação inicial indisponível: %v", err)
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.CotacaoRefresh), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CotacaoFetchTimeout)
		defer cancel()
		_ = monitor.Refresh(ctx)
	})
	if err != nil {
		log.Fatal("Erro ao agendar atualização de cotação:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Handler
	handler := api.NewHandler(
		db,
		cacheService,
		aporteService,
		statsService,
		importacaoService,
		backfillService,
		monitor,
	)

	// Fiber app
	app := fiber.New(fiber.Config{
		Prefork:                 false,
		ServerHeader:            "Aportes-BTC",
		DisableStartupMessage:   false,
		AppName:                 "Aportes BTC v1.0.0",
		ReadTimeout:             cfg.APIReadTimeout,
		WriteTimeout:            cfg.APIWriteTimeout,
		IdleTimeout:             120 * time.Second,
		ReadBufferSize:          8192,
		WriteBufferSize:         8192,
		CompressedFileSuffix:    ".gz",
		ProxyHeader:             "X-Forwarded-For",
		EnableTrustedProxyCheck: true,
		BodyLimit:               cfg.ImportMaxSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-User-ID",
	}))

	// Setup routes
	api.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("Starting server on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatal("Server error:", err)
	}
}

func connectPostgres(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar conexão: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("erro ao testar conexão: %w", err)
	}

	log.Println("✅ Conectado ao PostgreSQL")
	return db, nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Printf("⚠️ Redis não disponível: %v (continuando sem cache)", err)
		return nil
	}

	log.Println("✅ Conectado ao Redis")
	return redisCache
}
