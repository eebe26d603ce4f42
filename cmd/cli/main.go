package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rodrigomv/aportes-btc/internal/config"
	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/internal/importer"
	"github.com/rodrigomv/aportes-btc/internal/rates"
	"github.com/rodrigomv/aportes-btc/internal/service"
	"github.com/rodrigomv/aportes-btc/internal/storage/postgres"
	pkglogger "github.com/rodrigomv/aportes-btc/pkg/logger"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "aportes-btc",
		Short: "Aportes BTC CLI",
		Long: `CLI para o rastreador de aportes em Bitcoin.
Permite importar planilhas, executar o backfill USD e consultar estatísticas.`,
	}

	var importCmd = &cobra.Command{
		Use:   "import [files...]",
		Short: "Importa arquivos CSV de aportes",
		Long: `Importa arquivos CSV no formato data,valor,bitcoin[,cotacao,origem].
Linhas com erro são reportadas individualmente sem derrubar o arquivo.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			return importFiles(userID, args)
		},
	}
	importCmd.Flags().StringP("user", "u", "", "ID do usuário dono dos aportes")
	importCmd.MarkFlagRequired("user")

	var backfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Preenche retroativamente os campos USD dos aportes em BRL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill()
		},
	}

	var statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Calcula as estatísticas da carteira",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			moeda, _ := cmd.Flags().GetString("moeda")
			unidade, _ := cmd.Flags().GetString("unidade")
			return showStats(userID, moeda, unidade)
		},
	}
	statsCmd.Flags().StringP("user", "u", "", "ID do usuário")
	statsCmd.Flags().StringP("moeda", "m", "BRL", "Moeda da visão (BRL ou USD)")
	statsCmd.Flags().StringP("unidade", "b", "BTC", "Unidade (BTC ou SATS)")
	statsCmd.MarkFlagRequired("user")

	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Verifica saúde do sistema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	rootCmd.AddCommand(importCmd, backfillCmd, statsCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *postgres.DB, *rates.Resolver, error) {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, false); err != nil {
		return nil, nil, nil, err
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("erro ao conectar PostgreSQL: %w", err)
	}

	historico := rates.NewClienteAwesome(cfg.CotacaoHistoricaURL, cfg.CotacaoFetchTimeout)
	resolver := rates.NewResolver(historico)

	return cfg, db, resolver, nil
}

func importFiles(userID string, files []string) error {
	cfg, db, resolver, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	gate := importer.NewGate(cfg.ImportMaxSizeMB, cfg.ImportExtensions)
	aporteService := service.NewAporteService(db.Pool(), nil, resolver)
	importacao := service.NewImportacaoService(
		db.Pool(), gate, importer.NewParserCSV(), importer.NewParserTexto(),
		resolver, aporteService, cfg.ImportBatchSize,
	)

	ctx := context.Background()

	for _, padrao := range files {
		matches, err := filepath.Glob(padrao)
		if err != nil || len(matches) == 0 {
			matches = []string{padrao}
		}

		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil {
				fmt.Printf("❌ %s: %v\n", path, err)
				continue
			}

			f, err := os.Open(path)
			if err != nil {
				fmt.Printf("❌ %s: %v\n", path, err)
				continue
			}

			resultado, err := importacao.ProcessarCSV(ctx, userID, filepath.Base(path), info.Size(), f)
			f.Close()
			if err != nil {
				fmt.Printf("❌ %s: %v\n", path, err)
				continue
			}

			fmt.Printf("✅ %s: %d aportes inseridos", path, resultado.Inseridos)
			if len(resultado.Falhas) > 0 {
				fmt.Printf(", %d falhas:\n", len(resultado.Falhas))
				for _, falha := range resultado.Falhas {
					fmt.Printf("   - %s\n", falha)
				}
			} else {
				fmt.Println()
			}
		}
	}

	return nil
}

func runBackfill() error {
	_, db, resolver, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	backfill := service.NewBackfillService(db.Pool(), resolver, nil)

	inicio := time.Now()
	resultado, err := backfill.Executar(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("✅ Backfill: %d pendentes, %d atualizados, %d falhas (%s)\n",
		resultado.Pendentes, resultado.Atualizados, resultado.Falhas,
		time.Since(inicio).Round(time.Millisecond))

	for _, falha := range resultado.DetalheFalha {
		fmt.Printf("   - %s\n", falha)
	}

	return nil
}

func showStats(userID, moedaStr, unidadeStr string) error {
	cfg, db, resolver, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	moeda := domain.Moeda(moedaStr)
	if !moeda.Valida() {
		return fmt.Errorf("moeda inválida: %s", moedaStr)
	}

	unidade := domain.UnidadeBtc(unidadeStr)
	if unidade != domain.UnidadeBTC && unidade != domain.UnidadeSATS {
		return fmt.Errorf("unidade inválida: %s", unidadeStr)
	}

	coingecko := rates.NewClienteCoinGecko(cfg.CotacaoAtualURL, cfg.CotacaoFetchTimeout)
	monitor := rates.NewMonitor(coingecko)

	ctx := context.Background()
	if err := monitor.Refresh(ctx); err != nil {
		fmt.Printf("⚠️ Cotação atual indisponível: %v\n", err)
	}

	aporteService := service.NewAporteService(db.Pool(), nil, resolver)
	statsService := service.NewStatsService(aporteService, monitor, nil)

	stats, err := statsService.Estatisticas(ctx, userID, moeda, unidade)
	if err != nil {
		return err
	}

	fmt.Printf("📊 Carteira de %s (%s, %s)\n", userID, stats.Moeda, stats.Unidade)
	fmt.Printf("   Aportes:         %d\n", stats.TotalAportes)
	fmt.Printf("   Total investido: %s\n", stats.TotalInvestido.Round(2))
	fmt.Printf("   Total %s:       %s\n", stats.Unidade, stats.TotalBtc)
	fmt.Printf("   Preço médio:     %s\n", stats.PrecoMedio.Round(2))
	fmt.Printf("   Valor atual:     %s\n", stats.ValorAtual.Round(2))
	fmt.Printf("   Rendimento:      %s%%\n", stats.RendimentoPct.Round(2))

	if stats.AportesExcluidos > 0 {
		fmt.Printf("   ⚠️ %d aportes fora do total convertido (sem cotação USD/BRL)\n",
			stats.AportesExcluidos)
	}

	for _, d := range stats.Distribuicao {
		fmt.Printf("   %-10s %s%% (%s BTC)\n", d.Origem, d.Percentual.Round(1), d.Bitcoin)
	}

	return nil
}

func checkHealth() error {
	_, db, _, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("PostgreSQL indisponível: %w", err)
	}

	fmt.Println("✅ PostgreSQL ok")
	return nil
}
