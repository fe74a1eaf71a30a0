package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/api"
	"github.com/banshee-data/vibration.monitor/internal/config"
	"github.com/banshee-data/vibration.monitor/internal/db"
	"github.com/banshee-data/vibration.monitor/internal/monitoring"
	"github.com/banshee-data/vibration.monitor/internal/timeutil"
	"github.com/banshee-data/vibration.monitor/internal/version"
	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "vibration_data.db", "Path to the sqlite database")
	configFile = flag.String("config", "", "Optional JSON tuning file")
	autostart  = flag.Bool("autostart", false, "Start monitoring immediately")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	monitoring.SetVerbose(*verbose)
	log.Printf("vibration.monitor %s", version.String())

	pipeCfg := vibration.DefaultConfig()
	interval := vibration.DefaultTickInterval
	maxRows := db.DefaultMaxRows
	if *configFile != "" {
		tuning, err := config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		if pipeCfg, err = tuning.Apply(pipeCfg); err != nil {
			log.Fatalf("Invalid tuning config: %v", err)
		}
		if interval, err = tuning.Interval(interval); err != nil {
			log.Fatalf("Invalid tuning config: %v", err)
		}
		if tuning.MaxRows != nil {
			maxRows = *tuning.MaxRows
		}
	}

	store, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()
	store.MaxRows = maxRows

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pipe, err := vibration.NewPipeline(pipeCfg, timeutil.RealClock{}, rng, store)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	pipe.Interval = interval

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *autostart {
		if err := pipe.Start(); err != nil {
			log.Fatalf("Failed to start pipeline: %v", err)
		}
	}

	mux := http.NewServeMux()
	api.NewServer(store, pipe).SetupRoutes(mux)
	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP server listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal, then stop the pipeline before the server so
	// the final tick can still be recorded.
	<-ctx.Done()
	log.Print("shutting down")
	pipe.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
}
