package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/packfinderz-cart/api/routes"
	"github.com/angelmondragon/packfinderz-cart/internal/cart"
	"github.com/angelmondragon/packfinderz-cart/internal/cartapi"
	"github.com/angelmondragon/packfinderz-cart/pkg/config"
	"github.com/angelmondragon/packfinderz-cart/pkg/connectivity"
	"github.com/angelmondragon/packfinderz-cart/pkg/devicestore"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
	"github.com/angelmondragon/packfinderz-cart/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

type checker interface {
	connectivity.Checker
	connectivity.Subscriber
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"store_driver": cfg.Store.Driver,
	})

	store, err := devicestore.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open device store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing device store", err)
		}
	}()

	remote, err := cartapi.New(cfg.Remote, cfg.Breaker, logg)
	if err != nil {
		logg.Error(ctx, "failed to create remote cart client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fee, err := cfg.Cart.Fee()
	if err != nil {
		logg.Error(ctx, "invalid shipping fee", err)
		os.Exit(1)
	}

	var (
		reach   checker
		monitor *connectivity.Monitor
	)
	if cfg.Connectivity.ForceOffline {
		reach = connectivity.NewStatic(false)
		logg.Warn(ctx, "connectivity forced offline")
	} else {
		probe := connectivity.NewHTTPProbe(cfg.Connectivity.ProbeTarget(cfg.Remote), cfg.Connectivity.ProbeTimeout)
		monitor = connectivity.NewMonitor(probe, cfg.Connectivity.Interval, logg)
		reach = monitor
	}

	notices := cart.NewNoticeBuffer(cfg.Cart.NoticeBuffer)
	manager, err := cart.NewManager(cart.ManagerParams{
		Store:        store,
		Remote:       remote,
		Checkout:     remote,
		Connectivity: reach,
		Notifier:     cart.Notifiers(notices, cart.LogNotifier{Logger: logg}),
		Logger:       logg,
		Metrics:      metrics.NewCartMetrics(registry),
		Options: cart.Options{
			SnapshotKey:   cfg.Cart.SnapshotKey,
			ShippingFee:   fee,
			CheckoutScope: cart.CheckoutScope(cfg.Cart.CheckoutScope),
			AsyncMirror:   cfg.Cart.AsyncMirror,
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart manager", err)
		os.Exit(1)
	}

	snap := manager.Load(ctx)
	logg.Info(logg.WithFields(ctx, map[string]any{
		"lines": len(snap.Lines),
		"state": string(manager.State()),
	}), "cart loaded")

	unwatch := manager.Watch(ctx, reach)
	defer unwatch()

	server := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           routes.NewRouter(cfg, logg, store, remote, manager, notices, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if monitor != nil {
		g.Go(func() error {
			monitor.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logg.Info(logg.WithField(ctx, "addr", cfg.App.Addr), "local cart api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
		return manager.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "cartd stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cartd stopped")
}
