package main

import (
	"bytes"
	"context"
	"testing"

	"cachequest/internal/adapter/feed/scripted"
	wsfeed "cachequest/internal/adapter/feed/ws"
	"cachequest/internal/adapter/repo/memory"
	"cachequest/internal/config"
	"cachequest/internal/domain/grid"
)

func testConfig() config.Config {
	return config.Config{
		TileWidth:         1e-4,
		VisibilityRadius:  2,
		SpawnProbability:  0.1,
		MaxTokens:         5,
		InteractionRadius: 10,
		OriginLat:         36.98949379578401,
		OriginLng:         -122.06277128548504,
		Store:             config.StoreMemory,
		LogLevel:          "info",
	}
}

func TestBuildFeed_PrefersWebSocket(t *testing.T) {
	cfg := testConfig()
	cfg.FeedURL = "ws://localhost:9000/fix"
	cfg.FeedPath = "1,2;3,4"
	feed, err := buildFeed(cfg)
	if err != nil {
		t.Fatalf("buildFeed error: %v", err)
	}
	if _, ok := feed.(wsfeed.Feed); !ok {
		t.Fatalf("expected websocket feed, got %T", feed)
	}
}

func TestBuildFeed_ScriptedPath(t *testing.T) {
	cfg := testConfig()
	cfg.FeedPath = "1,2;3,4"
	feed, err := buildFeed(cfg)
	if err != nil {
		t.Fatalf("buildFeed error: %v", err)
	}
	sf, ok := feed.(scripted.Feed)
	if !ok {
		t.Fatalf("expected scripted feed, got %T", feed)
	}
	if len(sf.Positions) != 2 || sf.Positions[1] != (grid.Position{Lat: 3, Lng: 4}) {
		t.Fatalf("unexpected path %v", sf.Positions)
	}

	cfg.FeedPath = "1;2"
	if _, err := buildFeed(cfg); err == nil {
		t.Fatalf("expected error for malformed path")
	}
}

func TestBuildFeed_None(t *testing.T) {
	feed, err := buildFeed(testConfig())
	if err != nil || feed != nil {
		t.Fatalf("expected no feed, got %v err=%v", feed, err)
	}
}

func TestBuildSlotStore_SQLite(t *testing.T) {
	cfg := testConfig()
	cfg.Store = config.StoreSQLite
	cfg.SQLitePath = t.TempDir() + "/world.db"
	store, closeStore, err := buildSlotStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildSlotStore error: %v", err)
	}
	defer closeStore()
	if err := store.SaveSlots(context.Background(), map[string][]byte{"coins": []byte(`[]`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestBuildController_RestoresAcrossStores(t *testing.T) {
	cfg := testConfig()
	slots := memory.NewSlotRepo(memory.NewStore())
	var out bytes.Buffer
	mp, rec, err := buildOtel(cfg, &out)
	if err != nil {
		t.Fatalf("buildOtel error: %v", err)
	}
	defer mp.Shutdown(context.Background())

	ctl, err := buildController(cfg, slots, nil, rec)
	if err != nil {
		t.Fatalf("buildController error: %v", err)
	}
	if _, err := ctl.Restore(context.Background()); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if err := ctl.Save(context.Background()); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, ok, _ := slots.Load(context.Background(), "caches"); !ok {
		t.Fatalf("expected caches slot written")
	}

	again, err := buildController(cfg, slots, nil, nil)
	if err != nil {
		t.Fatalf("buildController error: %v", err)
	}
	if _, err := again.Restore(context.Background()); err != nil {
		t.Fatalf("second Restore error: %v", err)
	}
	if len(again.View().Caches) != len(ctl.View().Caches) {
		t.Fatalf("expected restored caches to match")
	}
}

func TestBuildOtel_UnknownExporter(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsExporter = "smoke-signals"
	if _, _, err := buildOtel(cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
