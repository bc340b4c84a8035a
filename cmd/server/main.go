/*
main.go - Application entry point

PURPOSE:
  Wires the bookkeeping service together: configuration, logger, record
  store backend, stream repositories, reconciliation engine, HTTP
  router. Shuts down gracefully on SIGINT/SIGTERM.

BACKENDS (STORE_BACKEND):
  memory  volatile, for demos and tests
  sqlite  local persistent database at DB_PATH (default)
  sheets  Google Sheets via SHEETS_ACCESS_TOKEN

SEE ALSO:
  - config/config.go: environment variables
  - api/server.go: router configuration
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/stockledger/api"
	"github.com/warp/stockledger/auth"
	"github.com/warp/stockledger/config"
	"github.com/warp/stockledger/ledger"
	"github.com/warp/stockledger/recordstore"
	"github.com/warp/stockledger/recordstore/memory"
	"github.com/warp/stockledger/recordstore/sheets"
	"github.com/warp/stockledger/recordstore/sqlite"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize record store")
	}
	defer cleanup()

	purchases := ledger.NewPurchaseRepository(store, log)
	sales := ledger.NewSaleRepository(store, log)
	adjustments := ledger.NewAdjustmentRepository(store, log)
	engine := ledger.NewEngine(purchases, sales, log)

	handler := api.NewHandler(purchases, sales, adjustments, engine, log)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"backend": cfg.StoreBackend,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("server stopped")
}

func openStore(cfg config.Config) (recordstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return memory.New(), func() {}, nil
	case "sqlite":
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "sheets":
		if cfg.SheetsAccessToken == "" {
			return nil, nil, fmt.Errorf("sheets backend requires SHEETS_ACCESS_TOKEN")
		}
		source := auth.Static(cfg.SheetsAccessToken)
		return sheets.New(source, cfg.SheetsRequestsPerSecond), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
