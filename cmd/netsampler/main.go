package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"netsampler/internal/config"
	"netsampler/internal/core/counter"
	"netsampler/internal/core/location"
	"netsampler/internal/core/pubsub"
	"netsampler/internal/core/radio"
	"netsampler/internal/core/sampler"
	"netsampler/internal/discovery"
	"netsampler/internal/domain"
	"netsampler/internal/logger"
	"netsampler/internal/metrics"
	"netsampler/internal/storage/snapshot"
	"netsampler/internal/storage/sqlite"
	transporthttp "netsampler/internal/transport/http"
	"netsampler/internal/transport/rest"
	"netsampler/internal/transport/stream"
	"netsampler/internal/transport/websocket"
)

type app struct {
	cfg      *config.Config
	log      logger.Logger
	db       *sql.DB
	metrics  *metrics.Metrics
	hub      *pubsub.Hub
	sampler  *sampler.Sampler
	location *location.Observer
	pushFeed *radio.PushFeed
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg)

	a, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("netsampler: failed to initialise", "error", err)
		os.Exit(1)
	}

	log.Info("netsampler: starting", "mode", cfg.Mode, "interval", cfg.Interval)

	switch cfg.Mode {
	case config.ModeStream:
		err = stream.Run(ctx, a.hub, a.sampler, os.Stdout)
	case config.ModeSnapshot:
		err = stream.Snapshot(ctx, a.hub, a.sampler, os.Stdout)
	default:
		err = a.serve(ctx)
	}

	a.close()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("netsampler: stopped with error", "error", err)
		os.Exit(1)
	}

	log.Info("netsampler: stopped")
}

func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
	}

	// Counters
	tracker := counter.NewTracker(counter.NewProcNetDev(cfg.NetDevPath, cfg.NetInterfaces))

	// Radio
	var feed radio.Feed
	switch cfg.SignalSource {
	case config.SignalSourceMMCLI:
		feed = radio.NewMMCLIFeed(cfg.MMCLIModem, cfg.SignalRefresh, log)
	case config.SignalSourcePush:
		a.pushFeed = radio.NewPushFeed()
		feed = a.pushFeed
	default:
		feed = radio.NoopFeed{}
	}
	signalObserver := radio.NewObserver(feed, log)

	// Location
	var locator location.Locator
	switch cfg.LocationSource {
	case config.LocationSourceGPSD:
		locator = location.NewGPSD(cfg.GPSDAddr)
	case config.LocationSourceStatic:
		static, err := location.ParseStatic(cfg.LocationStatic)
		if err != nil {
			return nil, err
		}
		locator = static
	default:
		locator = location.None{}
	}

	var fixStore location.FixStore
	if cfg.LocationSource != config.LocationSourceNone && cfg.DBPath != "" {
		db, err := sqlite.NewSqliteDB(cfg.DBPath, log)
		if err != nil {
			log.Warn("netsampler: location cache disabled", "error", err)
		} else {
			a.db = db
			fixStore = sqlite.NewFixRepository(db)
		}
	}

	a.location = location.NewObserver(locator, fixStore, location.Options{
		Timeout:     cfg.LocationTimeout,
		Refresh:     cfg.LocationRefresh,
		MinInterval: cfg.LocationMinInterval,
	}, log)
	if err := a.location.Restore(ctx); err != nil {
		log.Warn("netsampler: failed to restore cached fix", "error", err)
	}

	env := &snapshot.Store[domain.Environment]{}
	env.Set(domain.Environment{Region: cfg.Region, Condition: cfg.Condition})

	a.hub = pubsub.NewHub(cfg.DeliveryBuffer, log, a.metrics)
	a.sampler = sampler.New(
		tracker,
		signalObserver,
		a.location,
		env,
		a.hub,
		a.metrics,
		log,
		sampler.Options{
			Interval: cfg.Interval,
			Policy:   sampler.ParseLocationPolicy(cfg.LocationPolicy),
		},
	)

	return a, nil
}

func (a *app) serve(ctx context.Context) error {
	latest := rest.NewLatestSample()
	a.hub.Observe(latest)

	deps := &rest.RouterDeps{
		Ws:      websocket.NewHandler(a.hub, a.log, a.cfg),
		Sampler: rest.NewSamplerHandler(ctx, a.sampler, latest, a.log),
		Metrics: a.metrics.Handler(),
	}
	if a.pushFeed != nil {
		deps.Signal = rest.NewSignalHandler(a.pushFeed)
	}

	srv := transporthttp.NewServer(a.cfg.Address, rest.NewRouter(a.cfg, deps, a.log), a.log)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. HTTP, websocket and metrics
	g.Go(func() error {
		return srv.Start(gCtx)
	})

	// 2. Sampling loop
	g.Go(func() error {
		if err := a.sampler.Start(gCtx); err != nil {
			return fmt.Errorf("start sampler: %w", err)
		}
		<-gCtx.Done()
		a.sampler.Stop()
		return nil
	})

	// 3. mDNS advertisement
	if a.cfg.MDNSEnable {
		g.Go(func() error {
			select {
			case addr := <-srv.Ready():
				if err := discovery.Advertise(gCtx, a.cfg.MDNSInstance, addr.String(), []string{"path=/ws"}, a.log); err != nil {
					a.log.Warn("mdns: advertisement failed", "error", err)
				}
			case <-gCtx.Done():
			}
			return nil
		})
	}

	return g.Wait()
}

func (a *app) close() {
	a.sampler.Stop()
	a.location.Wait()
	a.hub.Close()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("netsampler: failed to close database", "error", err)
		}
	}
}
