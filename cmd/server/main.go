package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/api"
	"github.com/xenocrm/crm-backend/internal/audience"
	"github.com/xenocrm/crm-backend/internal/auth"
	"github.com/xenocrm/crm-backend/internal/config"
	"github.com/xenocrm/crm-backend/internal/delivery"
	"github.com/xenocrm/crm-backend/internal/logger"
	"github.com/xenocrm/crm-backend/internal/store"
	"github.com/xenocrm/crm-backend/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	telemetry.Init()

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg)
	if err != nil {
		log.Fatal("store init failed", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	commLog := delivery.NewLog(st)
	dispatcher := delivery.NewDispatcher(commLog, log, cfg.DeliveryQueueSize)
	dispatcher.Start()

	// Vendor endpoint shares one process-wide source; delivery batches get a
	// fresh simulator seeded from the campaign, so a batch replays the same
	// outcome sequence under the same salt.
	vendorSim := delivery.NewSimulator(dispatcher, rand.New(rand.NewSource(time.Now().UnixNano())), cfg.VendorSuccessRate)
	senderFor := func(campaignID string) delivery.Sender {
		seed := delivery.BatchSeed(campaignID, cfg.SimulationSalt)
		return delivery.NewSimulator(dispatcher, rand.New(rand.NewSource(seed)), cfg.VendorSuccessRate)
	}

	aud := audience.New(st)
	runner := delivery.NewRunner(aud, senderFor, log, cfg.DeliveryWorkers, cfg.DeliveryTimeout)

	srvAPI := api.NewServer(api.Options{
		Store:       st,
		Audience:    aud,
		Log:         commLog,
		Runner:      runner,
		Simulator:   vendorSim,
		Verifier:    auth.NewStaticVerifier(),
		Logger:      log,
		AdminAPIKey: cfg.AdminAPIKey,
		RateLimit:   cfg.RateLimitPerIP,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreType))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	_ = dispatcher.Close()
	log.Info("stopped")
}
