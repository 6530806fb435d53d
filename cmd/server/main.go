/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the streaming payroll server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load the YAML config
  2. Build the zap logger
  3. Initialize SQLite store (migrations applied on open)
  4. Fund the in-process treasury and pick the price reference
  5. Create the payroll engine, API handler and solvency monitor
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config   YAML config file (optional; defaults are used without it)
  -port     HTTP server port, overrides server.port
  -db       SQLite database path, overrides database.path
            Use ":memory:" for in-memory database
  -manager  Manager identity, overrides payroll.manager

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the solvency monitor
  2. Stop accepting new connections
  3. Wait for active requests to complete (server.shutdown_timeout)
  4. Close database connection

EXAMPLES:
  ./server -config=./config.yaml
  ./server -db=":memory:" -manager=0xmanager -port=3000

SEE ALSO:
  - config/config.go: Configuration file format
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payroll-stream/api"
	"github.com/warp/payroll-stream/config"
	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/oracle"
	"github.com/warp/payroll-stream/payroll"
	"github.com/warp/payroll-stream/store/sqlite"
	"github.com/warp/payroll-stream/treasury"
	"go.uber.org/zap"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	manager := flag.String("manager", "", "Manager identity")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *port, *dbPath, *manager)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func loadConfig(path string, port int, dbPath, manager string) (*config.Config, error) {
	return config.Load(path, func(cfg *config.Config) {
		if port != 0 {
			cfg.Server.Port = port
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if manager != "" {
			cfg.Payroll.Manager = manager
		}
	})
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Treasury
	vault := treasury.NewVault(cfg.Payroll.StableDecimals, cfg.Payroll.NativeDecimals)
	if _, err := vault.Deposit(ctx, generic.CurrencyStable,
		generic.NewAmount(cfg.Treasury.InitialStable, generic.UnitStable, cfg.Payroll.StableDecimals)); err != nil {
		return err
	}
	if _, err := vault.Deposit(ctx, generic.CurrencyNative,
		generic.NewAmount(cfg.Treasury.InitialNative, generic.UnitNative, cfg.Payroll.NativeDecimals)); err != nil {
		return err
	}

	// Price reference
	var feed payroll.PriceFeed
	if cfg.Oracle.RatesFile != "" {
		feed = oracle.NewFile(cfg.Oracle.RatesFile)
		logger.Info("price reference", zap.String("rates_file", cfg.Oracle.RatesFile))
	} else {
		feed = oracle.NewStatic(cfg.Oracle.Price, nil)
		logger.Info("price reference", zap.String("static_price", cfg.Oracle.Price.String()))
	}

	// Engine
	engineCfg := payroll.DefaultConfig(generic.Identity(cfg.Payroll.Manager))
	engineCfg.StableDecimals = cfg.Payroll.StableDecimals
	engineCfg.NativeDecimals = cfg.Payroll.NativeDecimals
	engineCfg.MaxRateAge = cfg.Payroll.MaxRateAge
	engineCfg.Logger = logger
	engine, err := payroll.NewEngine(store, vault, feed, engineCfg)
	if err != nil {
		return err
	}

	// Solvency monitor
	monitor := api.NewSolvencyMonitor(engine, logger)
	monitor.CheckInterval = cfg.Monitor.Interval
	monitor.Enabled = cfg.Monitor.Interval > 0
	monitor.Start()
	defer monitor.Stop()

	// Create router and server
	router := api.NewRouter(api.NewHandler(engine, logger), cfg.Server.AllowedOrigins)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("manager", cfg.Payroll.Manager),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
