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
	"marketflow/internal/exchange"
	"marketflow/internal/journal"
	"marketflow/internal/replay"
	"marketflow/internal/reporting"
	"marketflow/internal/trade"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file (JSON)")
		envFile     = flag.String("env", ".env", "Environment file path")
		tickFile    = flag.String("file", "", "Tick dataset CSV (time,price,volume,is_ask)")
		speed       = flag.Float64("speed", 0, "Replay speed multiplier (0 = no pacing)")
		journalFile = flag.String("journal", "", "Optional trade journal CSV path")
		statusEvery = flag.Duration("status", 0, "Status table interval during paced replay (0 disables)")
	)
	flag.Parse()

	if *tickFile == "" {
		log.Fatal("Please specify a tick dataset with -file")
	}
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No %s file loaded (%v), using process environment", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ticks, err := replay.LoadCSV(*tickFile)
	if err != nil {
		log.Fatalf("Failed to load tick dataset: %v", err)
	}

	var sink trade.Journal = journal.NewMemory()
	if *journalFile != "" {
		csvJournal, err := journal.OpenCSV(*journalFile)
		if err != nil {
			log.Fatalf("Failed to open trade journal: %v", err)
		}
		defer csvJournal.Close()
		sink = csvJournal
	}

	eng := engine.New(cfg, sink)
	console := reporting.NewConsole(nil)
	console.PrintStartup(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if *statusEvery > 0 {
		ticker := time.NewTicker(*statusEvery)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					console.PrintStatus(eng.SnapshotState())
				}
			}
		}()
	}

	start := time.Now()
	feed := replay.NewFeed(ticks, *speed)
	err = feed.Run(ctx, func(tick exchange.Tick) {
		eng.ProcessTickAt(tick.Price, tick.Volume, tick.IsAsk, tick.Time)
	})
	if err != nil && err != context.Canceled {
		log.Fatalf("Replay failed: %v", err)
	}

	log.Printf("Replayed %d ticks in %s", feed.Len(), time.Since(start).Round(time.Millisecond))
	state := eng.SnapshotState()
	console.PrintStatus(state)
	console.PrintPerformance(state.Performance)
}
