// Package main runs the call tracker service: admission-fed storage, the
// heartbeat maintenance loop (refresh, lifecycle, streak alerts, daily
// digest) and a Prometheus metrics endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DeanCryptoo/YabaiBot/internal/admission"
	"github.com/DeanCryptoo/YabaiBot/internal/bot"
	"github.com/DeanCryptoo/YabaiBot/internal/digest"
	"github.com/DeanCryptoo/YabaiBot/internal/lifecycle"
	"github.com/DeanCryptoo/YabaiBot/internal/marketdata"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/ranking"
	"github.com/DeanCryptoo/YabaiBot/internal/scheduler"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
	chstore "github.com/DeanCryptoo/YabaiBot/internal/storage/clickhouse"
	"github.com/DeanCryptoo/YabaiBot/internal/storage/memory"
	"github.com/DeanCryptoo/YabaiBot/internal/storage/migrations"
	pgstore "github.com/DeanCryptoo/YabaiBot/internal/storage/postgres"
	"github.com/DeanCryptoo/YabaiBot/internal/streak"
)

// Service bundles the wired components. Commands is the interactive surface
// a chat transport adapter drives; everything else runs off the heartbeat.
type Service struct {
	Commands  *bot.Bot
	Heartbeat *scheduler.Heartbeat
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	return s.Heartbeat.Run(ctx)
}

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	marketEndpoint := flag.String("market-endpoint", os.Getenv("MARKET_API_ENDPOINT"), "Market data API base URL (empty for the default)")
	marketTTL := flag.Duration("market-ttl", 0, "Market quote cache TTL (0 for the default)")
	heartbeatInterval := flag.Duration("heartbeat-interval", 0, "Background maintenance interval (0 for the default)")
	digestHour := flag.Int("digest-hour", 0, "UTC hour the daily digest goes out (0 for the default)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Stores (use interfaces)
	var (
		callStore    storage.CallStore    = memory.NewCallStore()
		archiveStore storage.ArchiveStore = memory.NewArchiveStore()
		profileStore storage.ProfileStore = memory.NewProfileStore()
		settingStore storage.SettingStore = memory.NewSettingStore()
	)

	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Apply postgres migrations: %v", err)
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Apply clickhouse migrations: %v", err)
		}
		defer conn.Close()

		callStore = pgstore.NewCallStore(pool)
		profileStore = pgstore.NewProfileStore(pool)
		settingStore = pgstore.NewSettingStore(pool)
		archiveStore = chstore.NewArchiveStore(conn)
	}

	// Market data cache in front of the HTTP provider
	var providerOpts []marketdata.ProviderOption
	if *marketEndpoint != "" {
		providerOpts = append(providerOpts, marketdata.WithEndpoint(*marketEndpoint))
	}
	var cacheOpts []marketdata.CacheOption
	if *marketTTL > 0 {
		cacheOpts = append(cacheOpts, marketdata.WithTTL(*marketTTL))
	}
	market := marketdata.NewCache(marketdata.NewHTTPProvider(providerOpts...), cacheOpts...)

	// No chat transport is wired here. The recorder keeps outbound messages
	// in memory so the service runs dry until a transport adapter plugs in.
	sender := messaging.NewRecorder()

	refresher := lifecycle.NewRefresher(callStore, market)

	controller := admission.New(admission.Options{
		Calls:    callStore,
		Archive:  archiveStore,
		Profiles: profileStore,
		Market:   market,
	})

	manager := lifecycle.New(lifecycle.Options{
		Calls:     callStore,
		Archive:   archiveStore,
		Refresher: refresher,
	})

	streaks := streak.New(streak.Options{
		Calls:     callStore,
		Profiles:  profileStore,
		Settings:  settingStore,
		Refresher: refresher,
		Sender:    sender,
	})

	digests := digest.New(digest.Options{
		Calls:     callStore,
		Settings:  settingStore,
		Refresher: refresher,
		Sender:    sender,
		HourUTC:   *digestHour,
	})

	svc := &Service{
		Commands: bot.New(bot.Options{
			Calls:     callStore,
			Archive:   archiveStore,
			Profiles:  profileStore,
			Settings:  settingStore,
			Admission: controller,
			Lifecycle: manager,
			Refresher: refresher,
			Rankings:  ranking.NewService(callStore, profileStore, refresher),
			Streaks:   streaks,
			Digests:   digests,
			Sender:    sender,
		}),
		Heartbeat: scheduler.New(scheduler.Options{
			Calls:     callStore,
			Settings:  settingStore,
			Lifecycle: manager,
			Streaks:   streaks,
			Digests:   digests,
			Interval:  *heartbeatInterval,
		}),
	}

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Println("Starting heartbeat...")
	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatalf("Heartbeat error: %v", err)
	}

	svc.Heartbeat.Wait()
	close(done)
	logger.Println("Shutdown complete")
}
