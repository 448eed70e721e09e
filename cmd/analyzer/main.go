package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketflow/internal/config"
	"marketflow/internal/engine"
	"marketflow/internal/events"
	"marketflow/internal/exchange"
	"marketflow/internal/journal"
	"marketflow/internal/logger"
	"marketflow/internal/monitoring"
	"marketflow/internal/reporting"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file (JSON)")
		envFile     = flag.String("env", ".env", "Environment file path")
		symbol      = flag.String("symbol", "", "Instrument symbol - overrides config")
		journalFile = flag.String("journal", "trades.csv", "Trade journal CSV path")
		monitorAddr = flag.String("monitor", ":9090", "Address for /metrics and /health (empty disables)")
		backfill    = flag.Bool("backfill", true, "Pre-warm the window from Bybit klines")
		statusEvery = flag.Duration("status", time.Minute, "Status table interval")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No %s file loaded (%v), using process environment", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *symbol != "" {
		cfg.Symbol = *symbol
	}

	fileLog, err := logger.New(cfg.Symbol, "")
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer fileLog.Close()

	csvJournal, err := journal.OpenCSV(*journalFile)
	if err != nil {
		log.Fatalf("Failed to open trade journal: %v", err)
	}
	defer csvJournal.Close()

	eng := engine.New(cfg, csvJournal)
	attachLogging(eng.Bus(), fileLog)

	if *monitorAddr != "" {
		monitoring.NewCollector(cfg.Symbol).Attach(eng.Bus())
		health := monitoring.NewHealthChecker(time.Minute)
		health.Attach(eng.Bus())
		go func() {
			if err := monitoring.Serve(*monitorAddr, health); err != nil {
				log.Printf("Monitoring server stopped: %v", err)
			}
		}()
	}

	console := reporting.NewConsole(nil)
	console.PrintStartup(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *backfill {
		prewarm(ctx, eng, cfg, fileLog)
	}

	feed := exchange.NewBinanceFeed(cfg.Symbol)
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- feed.Run(ctx, func(tick exchange.Tick) {
			eng.ProcessTickAt(tick.Price, tick.Volume, tick.IsAsk, tick.Time)
		})
	}()

	statusTicker := time.NewTicker(*statusEvery)
	defer statusTicker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Analyzer running for %s. Press Ctrl+C to stop.", cfg.Symbol)
	for {
		select {
		case <-statusTicker.C:
			state := eng.SnapshotState()
			console.PrintStatus(state)
			fileLog.MarketStatus(state.CurrentPrice, state.Metrics.Rounded(), state.ActiveTrade.Active)
		case err := <-feedErr:
			if err != nil && err != context.Canceled {
				log.Fatalf("Feed terminated: %v", err)
			}
			return
		case sig := <-sigChan:
			log.Printf("Shutdown signal (%v) received", sig)
			cancel()
			console.PrintPerformance(eng.SnapshotState().Performance)
			return
		}
	}
}

// prewarm feeds recent historical klines through the engine so metrics are
// available before the live stream produces enough ticks.
func prewarm(ctx context.Context, eng *engine.AnalysisEngine, cfg config.Config, fileLog *logger.Logger) {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ticks, err := exchange.NewBybitBackfill().HistoricalTicks(fetchCtx, cfg.Symbol, 1000)
	if err != nil {
		fileLog.LogError("backfill", err)
		log.Printf("Backfill failed, starting cold: %v", err)
		return
	}
	for _, tick := range ticks {
		eng.ProcessTickAt(tick.Price, tick.Volume, tick.IsAsk, tick.Time)
	}
	log.Printf("Pre-warmed window with %d historical ticks", len(ticks))
}

func attachLogging(bus *events.Bus, fileLog *logger.Logger) {
	bus.Subscribe(events.TypeSignal, func(ev events.Event) {
		action, _ := ev.Data["action"].(string)
		price, _ := ev.Data["price"].(float64)
		reason, _ := ev.Data["reason"].(string)
		profit, _ := ev.Data["profit_pct"].(float64)
		fileLog.Signal(action, price, profit, reason)
	})

	bus.Subscribe(events.TypeTradeClosed, func(ev events.Event) {
		entry, _ := ev.Data["entry_price"].(float64)
		exit, _ := ev.Data["exit_price"].(float64)
		pnl, _ := ev.Data["pnl_percent"].(float64)
		reason, _ := ev.Data["reason"].(string)
		fileLog.TradeClosed(entry, exit, pnl, reason)
	})

	bus.Subscribe(events.TypeError, func(ev events.Event) {
		stage, _ := ev.Data["stage"].(string)
		msg, _ := ev.Data["error"].(string)
		fileLog.Error("%s: %s", stage, msg)
	})
}
