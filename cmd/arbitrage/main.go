package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arbitrage/internal/arb"
	"arbitrage/internal/config"
	"arbitrage/internal/models"
	"arbitrage/internal/obslog"
	"arbitrage/internal/store"
	"arbitrage/internal/venue"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var decimal100 = decimal.NewFromInt(100)

// defaultTakerFee is used for any enabled exchange whose config doesn't
// carry per-account fee data.
var defaultTakerFee = decimal.RequireFromString("0.001")

func main() {
	root := &cobra.Command{
		Use:   "arbitrage",
		Short: "Cross-venue arbitrage opportunity discovery engine",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the TOML configuration file")

	root.AddCommand(startCmd(), scanCmd(), initDBCmd(), configCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func startCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the scan loop continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log intended trades without executing the stubbed execution path")
	return cmd
}

func scanCmd() *cobra.Command {
	var pair string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print each venue's bid/ask and the best cross-venue gross spread per pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), pair)
		},
	}
	cmd.Flags().StringVar(&pair, "pair", "", "restrict the scan to one pair (BASE/QUOTE); scans every configured pair if omitted")
	return cmd
}

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the opportunities schema in the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(cmd.Context())
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Load and print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", cfg)
			return nil
		},
	}
}

func buildLogger() (*zap.Logger, error) {
	return obslog.New(obslog.Options{
		Format: os.Getenv("LOG_FORMAT"),
		Level:  os.Getenv("LOG_LEVEL"),
	})
}

// wireRegistry builds a venue.Adapter for every enabled exchange in cfg
// and registers it. Only the "uniswap" name builds an AMM adapter; every
// other enabled name builds a CEX adapter against its configured
// endpoint.
func wireRegistry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*venue.Registry, error) {
	registry := venue.NewRegistry(log)

	for name, ex := range cfg.EnabledExchanges() {
		pairs := make([]models.TradingPair, 0, len(ex.TradingPairs))
		for _, s := range ex.TradingPairs {
			p, err := models.ParsePair(s)
			if err != nil {
				log.Warn("skipping malformed trading pair", zap.String("exchange", name), zap.String("pair", s))
				continue
			}
			pairs = append(pairs, p)
		}

		if name == "uniswap" {
			amm, err := venue.NewAMMAdapter(ctx, venue.AMMConfig{
				VenueName:     name,
				RPCURL:        ex.APIURL,
				RouterAddress: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
				TokenAddresses: map[string]string{
					"USDC": "0xA0b86a33E6441e5C46EE5F395f4c0C2D45C41B1A",
					"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
					"DAI":  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
					"WETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
					"WBTC": "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
				},
				TradingPairs: pairs,
			})
			if err != nil {
				log.Warn("failed to initialize uniswap adapter", zap.Error(err))
				continue
			}
			registry.Add(amm)
			log.Info("initialized venue", zap.String("venue", name), zap.String("kind", "amm"))
			continue
		}

		registry.Add(venue.NewCEXAdapter(venue.CEXConfig{
			VenueName:    name,
			APIURL:       ex.APIURL,
			APIKey:       ex.APIKey,
			APISecret:    ex.APISecret,
			TradingPairs: pairs,
			TakerFee:     defaultTakerFee,
			MakerFee:     defaultTakerFee,
			RateLimit:    10,
			RateBurst:    20,
			WSURL:        ex.WebsocketURL,
		}))
		log.Info("initialized venue", zap.String("venue", name), zap.String("kind", "cex"))
	}

	return registry, nil
}

// maxTradeAmountFunc closes over cfg so the calculator can cap sizing by
// each buy venue's configured ceiling, defaulting to 1000 units for a
// venue with no configured amount.
func maxTradeAmountFunc(cfg *config.Config) func(string) decimal.Decimal {
	fallback := decimal.NewFromInt(1000)
	return func(venueName string) decimal.Decimal {
		if ex, ok := cfg.Exchanges[venueName]; ok && !ex.MaxTradeAmount.IsZero() {
			return ex.MaxTradeAmount
		}
		return fallback
	}
}

func unionPairs(cfg *config.Config) []models.TradingPair {
	seen := make(map[string]models.TradingPair)
	for _, ex := range cfg.EnabledExchanges() {
		for _, s := range ex.TradingPairs {
			p, err := models.ParsePair(s)
			if err != nil {
				continue
			}
			seen[p.Symbol()] = p
		}
	}
	out := make([]models.TradingPair, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	return out
}

func runStart(ctx context.Context, dryRun bool) error {
	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry, err := wireRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}

	pg, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := pg.InitStore(ctx); err != nil {
		return err
	}
	defer pg.Close()

	book := arb.NewBook(pg, arb.DefaultExpiry, log)
	executor := arb.NewExecutor(registry, dryRun, cfg.Trading.MaxConcurrentTrades, log)
	scanner := arb.NewScanner(arb.ScannerConfig{
		CheckInterval:      cfg.Trading.CheckInterval(),
		MaxConcurrentPairs: 8,
		Calculator: arb.CalculatorConfig{
			MinProfitThreshold: cfg.Trading.MinProfitThreshold,
			MaxSlippage:        cfg.Trading.MaxSlippage,
			MaxTradeAmount:     maxTradeAmountFunc(cfg),
		},
	}, registry, book, executor, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go scanner.Run(runCtx, unionPairs(cfg))

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	server := &http.Server{
		Addr:         ":9090",
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting metrics server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func runScan(ctx context.Context, pairStr string) error {
	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry, err := wireRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}

	var pairs []models.TradingPair
	if pairStr != "" {
		p, err := models.ParsePair(pairStr)
		if err != nil {
			return err
		}
		pairs = []models.TradingPair{p}
	} else {
		pairs = unionPairs(cfg)
	}

	for _, pair := range pairs {
		quotes := registry.AllQuotes(ctx, pair)
		fmt.Printf("Prices for %s:\n", pair.Symbol())
		for _, q := range quotes {
			fmt.Printf("  %s: bid=%s, ask=%s\n", q.Venue, q.Bid, q.Ask)
		}

		buy, buyOK := venue.BestBuy(quotes)
		sell, sellOK := venue.BestSell(quotes)
		if buyOK && sellOK && buy.Venue != sell.Venue {
			grossPct := sell.Bid.Sub(buy.Ask).Div(buy.Ask).Mul(decimal100)
			fmt.Printf("\nArbitrage opportunity:\n  Buy on %s at %s\n  Sell on %s at %s\n  Gross profit: %s%%\n",
				buy.Venue, buy.Ask, sell.Venue, sell.Bid, grossPct)
		}
	}
	return nil
}

func runInitDB(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	pg, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()
	return pg.InitStore(ctx)
}
