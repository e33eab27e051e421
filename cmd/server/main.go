package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	httpadapter "cachequest/internal/adapter/http"
	"cachequest/internal/adapter/feed/scripted"
	wsfeed "cachequest/internal/adapter/feed/ws"
	"cachequest/internal/adapter/metrics"
	metricsinmem "cachequest/internal/adapter/metrics/inmemory"
	otelmetrics "cachequest/internal/adapter/metrics/otel"
	gormrepo "cachequest/internal/adapter/repo/gorm"
	"cachequest/internal/adapter/repo/memory"
	sqlitestore "cachequest/internal/adapter/repo/sqlite"
	"cachequest/internal/app/persistence"
	"cachequest/internal/app/ports"
	"cachequest/internal/app/session"
	"cachequest/internal/config"
	"cachequest/internal/domain/grid"
	"cachequest/internal/domain/spawn"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		hlog.Fatalf("load config: %v", err)
	}
	hlog.SetLevel(cfg.HlogLevel())

	ctx := context.Background()
	slots, closeStore, err := buildSlotStore(ctx, cfg)
	if err != nil {
		hlog.Fatalf("open slot store: %v", err)
	}
	defer closeStore()

	feed, err := buildFeed(cfg)
	if err != nil {
		hlog.Fatalf("build position feed: %v", err)
	}

	kpiRecorder := metricsinmem.NewRecorder()
	meterProvider, otelRecorder, err := buildOtel(cfg, os.Stdout)
	if err != nil {
		hlog.Fatalf("build metrics: %v", err)
	}
	defer func() {
		_ = meterProvider.Shutdown(context.Background())
	}()

	ctl, err := buildController(cfg, slots, feed, metrics.NewTee(kpiRecorder, otelRecorder))
	if err != nil {
		hlog.Fatalf("build session: %v", err)
	}
	report, err := ctl.Restore(ctx)
	if err != nil {
		hlog.Fatalf("restore world: %v", err)
	}
	if report.Audit != nil {
		hlog.Warnf("restored world failed exclusivity audit: %v", report.Audit)
	}

	h := httpadapter.Handler{
		Session:     ctl,
		KPI:         kpiRecorder,
		CORSOrigins: cfg.CORSOrigins,
	}
	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(s)
	s.OnShutdown = append(s.OnShutdown, func(ctx context.Context) {
		if err := ctl.Close(ctx); err != nil {
			hlog.CtxErrorf(ctx, "final save failed: %v", err)
		}
	})

	hlog.Infof("cachequest server listening on %s (store=%s, origin=%.6f,%.6f)", cfg.HTTPAddr, cfg.Store, cfg.OriginLat, cfg.OriginLng)
	s.Spin()
}

func buildController(cfg config.Config, slots ports.SlotStore, feed ports.PositionFeed, recorder ports.WorldMetrics) (*session.Controller, error) {
	board, err := grid.NewBoard(cfg.TileWidth, cfg.VisibilityRadius)
	if err != nil {
		return nil, err
	}
	return session.NewController(session.Config{
		Board: board,
		Policy: spawn.NewPolicy(spawn.Policy{
			SpawnProbability: cfg.SpawnProbability,
			MaxTokens:        cfg.MaxTokens,
		}),
		Persistence:       persistence.Gateway{Slots: slots},
		Feed:              feed,
		Metrics:           recorder,
		Origin:            grid.Position{Lat: cfg.OriginLat, Lng: cfg.OriginLng},
		InteractionRadius: cfg.InteractionRadius,
		Autosave:          cfg.Autosave,
	})
}

func buildSlotStore(ctx context.Context, cfg config.Config) (ports.SlotStore, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewSlotRepo(memory.NewStore()), func() {}, nil
	case config.StoreSQLite:
		store, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.StorePostgres:
		db, err := gormrepo.OpenPostgres(cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if err := gormrepo.Migrate(ctx, db); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return gormrepo.NewSlotRepo(db), closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// buildFeed prefers a live WebSocket feed, then a scripted path. Nil means
// tracked mode is unavailable.
func buildFeed(cfg config.Config) (ports.PositionFeed, error) {
	if cfg.FeedURL != "" {
		return wsfeed.Feed{URL: cfg.FeedURL}, nil
	}
	if cfg.FeedPath != "" {
		path, err := scripted.ParsePath(cfg.FeedPath)
		if err != nil {
			return nil, err
		}
		return scripted.Feed{Positions: path, Interval: cfg.FeedInterval, Loop: cfg.FeedLoop}, nil
	}
	return nil, nil
}

func buildOtel(cfg config.Config, w io.Writer) (*sdkmetric.MeterProvider, *otelmetrics.Recorder, error) {
	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	reader, err := otelmetrics.NewReader(cfg.MetricsExporter, w, interval)
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec, err := otelmetrics.NewRecorder(mp.Meter("cachequest"))
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, nil, err
	}
	return mp, rec, nil
}
