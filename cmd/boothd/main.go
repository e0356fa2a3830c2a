package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/api"
	"github.com/0gfoundation/exchange-booth/internal/auth"
	"github.com/0gfoundation/exchange-booth/internal/booth"
	"github.com/0gfoundation/exchange-booth/internal/config"
	"github.com/0gfoundation/exchange-booth/internal/genesis"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/oracle"
	"github.com/0gfoundation/exchange-booth/internal/program"
	"github.com/0gfoundation/exchange-booth/internal/runtime"
	"github.com/0gfoundation/exchange-booth/internal/system"
)

// submitAction is the action operators sign for transaction submission.
const submitAction = "submit_transaction"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log.Development)
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, nonces, err := openLedger(ctx, cfg, log)
	if err != nil {
		log.Fatal("ledger init failed", zap.Error(err))
	}
	feed := newFeed(cfg, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r := newServer(cfg, store, nonces, feed, registry, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// ── Ledger ────────────────────────────────────────────────────────────────────

// openLedger connects the configured account store and the nonce store that
// backs signed submissions, then seeds the store from the genesis file when
// one is configured.
func openLedger(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledger.Store, auth.NonceStore, error) {
	var (
		store  ledger.Store
		nonces auth.NonceStore
	)
	if cfg.Ledger.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		store, nonces = ledger.NewRedisStore(rdb), auth.NewRedisNonces(rdb)
	} else {
		log.Warn("using in-memory ledger; state is lost on exit")
		store, nonces = ledger.NewMemoryStore(), auth.NewMemoryNonces()
	}

	if cfg.Ledger.GenesisFile != "" {
		g, err := genesis.Load(cfg.Ledger.GenesisFile)
		if err != nil {
			return nil, nil, err
		}
		accounts, err := g.Build(rentOf(cfg), time.Now())
		if err != nil {
			return nil, nil, err
		}
		if _, err := genesis.Apply(ctx, store, accounts, log); err != nil {
			return nil, nil, err
		}
	}
	return store, nonces, nil
}

func rentOf(cfg *config.Config) system.Rent {
	return system.Rent{
		LamportsPerByteYear: cfg.Rent.LamportsPerByteYear,
		ExemptionThreshold:  cfg.Rent.ExemptionThreshold,
	}
}

// ── Oracle ────────────────────────────────────────────────────────────────────

func newFeed(cfg *config.Config, log *zap.Logger) booth.Oracle {
	maxAge := time.Duration(cfg.Oracle.MaxAgeSec) * time.Second
	if cfg.Oracle.Kind == "http" {
		return oracle.NewHTTPFeed(cfg.Oracle.URL, maxAge, cfg.Oracle.RPS, log)
	}
	return oracle.NewAccountFeed(maxAge)
}

// ── HTTP server ───────────────────────────────────────────────────────────────

// newServer builds the runtime with the booth and price publisher programs
// registered, and mounts the read API, metrics and, when operators are
// configured, transaction submission.
func newServer(cfg *config.Config, store ledger.Store, nonces auth.NonceStore, feed booth.Oracle, registry *prometheus.Registry, log *zap.Logger) *gin.Engine {
	programID := cfg.ProgramAddress()
	space := cfg.AddressSpace()

	rt := runtime.New(store, space, rentOf(cfg), runtime.NewMetrics(registry), log)
	rt.Register(programID, program.NewFactory(feed))
	rt.Register(oracle.ProgramID, func(env runtime.Env) runtime.Processor { return oracle.NewProgram(env.Log) })
	log.Info("program registered",
		zap.String("program", programID.String()),
		zap.String("address_space", cfg.Program.AddressSpace),
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api.NewHandler(store, programID, space, feed, log).Register(r.Group("/v1"))
	if ops := cfg.OperatorAddresses(); len(ops) > 0 {
		signed := r.Group("/v1", auth.Middleware(submitAction, ops, nonces))
		api.NewSubmitHandler(rt, log).Register(signed)
		log.Info("transaction submission enabled", zap.Int("operators", len(ops)))
	}
	return r
}

func newLogger(development bool) *zap.Logger {
	if development {
		log, _ := zap.NewDevelopment()
		return log
	}
	log, _ := zap.NewProduction()
	return log
}
