// Package session drives the player through the world: it owns the position,
// switches between manual and tracked movement, materializes caches as cells
// come into view, and gates collect/deposit by distance.
//
// All mutations run under one mutex, so HTTP calls and feed events never
// interleave.
package session

import (
	"context"
	"fmt"
	"sync"

	"cachequest/internal/app/persistence"
	"cachequest/internal/app/ports"
	"cachequest/internal/domain/cache"
	"cachequest/internal/domain/grid"
	"cachequest/internal/domain/spawn"
	"cachequest/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/common/hlog"
)

type Mode string

const (
	ModeManual  Mode = "manual"
	ModeTracked Mode = "tracked"
)

type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

const DefaultInteractionRadius = 10

type Config struct {
	Board       *grid.Board
	Policy      spawn.Policy
	Persistence persistence.Gateway
	Feed        ports.PositionFeed
	Metrics     ports.WorldMetrics
	Origin      grid.Position
	// InteractionRadius is measured in cells between the player's cell and
	// the cache cell.
	InteractionRadius float64
	// Autosave persists after every successful mutation.
	Autosave bool
}

type Controller struct {
	cfg Config

	mu          sync.Mutex
	state       *world.State
	position    grid.Position
	path        []grid.Position
	mode        Mode
	lastFeedErr error
	track       *tracking
	// pending is set while Subscribe runs without the lock held.
	pending *tracking
}

type tracking struct {
	sub    ports.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Board == nil {
		return nil, fmt.Errorf("%w: board is required", ErrInvalidConfig)
	}
	cfg.Policy = spawn.NewPolicy(cfg.Policy)
	if cfg.InteractionRadius <= 0 {
		cfg.InteractionRadius = DefaultInteractionRadius
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	return &Controller{
		cfg:      cfg,
		state:    world.NewState(),
		position: cfg.Origin,
		path:     []grid.Position{cfg.Origin},
		mode:     ModeManual,
	}, nil
}

// Restore loads persisted caches and wallet, then materializes the starting
// neighborhood. Without a slot store it only scans.
func (c *Controller) Restore(ctx context.Context) (persistence.ApplyReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report persistence.ApplyReport
	if c.cfg.Persistence.Slots != nil {
		loaded, err := c.cfg.Persistence.Load(ctx)
		if err != nil {
			return report, err
		}
		report = persistence.Apply(ctx, loaded, c.state)
		hlog.CtxInfof(ctx, "session: restored %d caches, wallet=%d, skipped=%d", report.Restored, len(c.state.Wallet()), len(report.Skipped))
	}
	c.scanLocked(ctx, c.position)
	if report.Audit == nil {
		if err := c.state.Audit(); err != nil {
			hlog.CtxErrorf(ctx, "session: starting neighborhood fails exclusivity audit: %v", err)
			report.Audit = err
		}
	}
	return report, nil
}

// Save persists the current state. A failure leaves memory untouched.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(ctx)
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) Position() grid.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Controller) Path() []grid.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]grid.Position{}, c.path...)
}

func (c *Controller) Wallet() []cache.TokenID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Wallet()
}

func (c *Controller) LastFeedError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFeedErr
}

// Step moves one tile in manual mode.
func (c *Controller) Step(ctx context.Context, dir Direction) error {
	w := c.cfg.Board.TileWidth()
	var dLat, dLng float64
	switch dir {
	case North:
		dLat = w
	case South:
		dLat = -w
	case East:
		dLng = w
	case West:
		dLng = -w
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeManual {
		return ErrManualDisabled
	}
	c.moveLocked(ctx, c.position.Offset(dLat, dLng))
	return nil
}

func (c *Controller) SetMode(ctx context.Context, mode Mode) error {
	switch mode {
	case ModeManual:
		c.StopTracking()
		return nil
	case ModeTracked:
		return c.StartTracking(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// StartTracking subscribes to the position feed and applies its events one at
// a time. The subscription outlives ctx's cancellation; only StopTracking
// ends it. A subscribe failure still leaves the controller in tracked mode.
//
// Subscribe runs without the lock, so reads and mutations proceed while the
// feed connects. If StopTracking wins the race the new subscription is closed
// and StartTracking returns nil with the controller in manual mode.
func (c *Controller) StartTracking(ctx context.Context) error {
	if c.cfg.Feed == nil {
		return ErrNoFeed
	}
	c.mu.Lock()
	if c.mode == ModeTracked && (c.track != nil || c.pending != nil) {
		c.mu.Unlock()
		return nil
	}
	c.mode = ModeTracked
	feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &tracking{cancel: cancel, done: make(chan struct{})}
	c.pending = t
	c.mu.Unlock()

	sub, err := c.cfg.Feed.Subscribe(feedCtx)

	c.mu.Lock()
	if c.pending != t {
		c.mu.Unlock()
		cancel()
		if err == nil {
			if cerr := sub.Close(); cerr != nil {
				hlog.CtxWarnf(ctx, "session: close position feed: %v", cerr)
			}
		}
		hlog.CtxInfof(ctx, "session: tracking stopped while subscribing")
		return nil
	}
	defer c.mu.Unlock()
	c.pending = nil
	if err != nil {
		cancel()
		c.lastFeedErr = err
		hlog.CtxWarnf(ctx, "session: position feed subscribe failed: %v", err)
		return fmt.Errorf("subscribe position feed: %w", err)
	}
	t.sub = sub
	c.track = t
	c.lastFeedErr = nil
	go c.consume(feedCtx, t)
	hlog.CtxInfof(ctx, "session: tracking started")
	return nil
}

// StopTracking returns to manual mode. Once it returns no feed event will
// touch the controller.
func (c *Controller) StopTracking() {
	c.mu.Lock()
	t := c.track
	c.track = nil
	pending := c.pending
	c.pending = nil
	c.mode = ModeManual
	c.mu.Unlock()

	if pending != nil {
		pending.cancel()
	}
	if t == nil {
		return
	}
	t.cancel()
	if err := t.sub.Close(); err != nil {
		hlog.Warnf("session: close position feed: %v", err)
	}
	<-t.done
	hlog.Infof("session: tracking stopped")
}

func (c *Controller) consume(ctx context.Context, t *tracking) {
	defer close(t.done)
	events := t.sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.mu.Lock()
				if c.track == t {
					if c.lastFeedErr == nil {
						c.lastFeedErr = ErrFeedClosed
					}
					hlog.CtxWarnf(ctx, "session: position feed ended: %v", c.lastFeedErr)
				}
				c.mu.Unlock()
				return
			}
			if !c.applyEvent(ctx, t, ev) {
				return
			}
		}
	}
}

func (c *Controller) applyEvent(ctx context.Context, t *tracking, ev ports.PositionEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track != t {
		return false
	}
	if ev.Err != nil {
		c.lastFeedErr = ev.Err
		hlog.CtxWarnf(ctx, "session: position feed error, keeping last position: %v", ev.Err)
		return true
	}
	c.lastFeedErr = nil
	c.moveLocked(ctx, ev.Position)
	return true
}

func (c *Controller) moveLocked(ctx context.Context, p grid.Position) {
	c.position = p
	c.path = append(c.path, p)
	c.scanLocked(ctx, p)
	c.autosaveLocked(ctx)
}

// scanLocked materializes caches for visible cells that have no entry yet.
// Cells with an entry are never re-derived. Tokens the wallet already holds
// are not minted again.
func (c *Controller) scanLocked(ctx context.Context, p grid.Position) int {
	spawned := 0
	for _, cell := range c.cfg.Board.CellsNear(p) {
		if _, ok := c.state.Get(*cell); ok {
			continue
		}
		fresh, ok := c.cfg.Policy.Materialize(*cell)
		if !ok {
			continue
		}
		for _, id := range fresh.Tokens() {
			if c.state.Holds(id) {
				fresh.RemoveToken(id)
				hlog.CtxWarnf(ctx, "session: %s already in wallet, not minting it at %s", id, cell.Key())
			}
		}
		c.state.Put(fresh)
		spawned++
	}
	if spawned > 0 {
		c.cfg.Metrics.RecordSpawn(spawned)
		hlog.CtxDebugf(ctx, "session: materialized %d caches around %v", spawned, p)
	}
	return spawned
}

func (c *Controller) Collect(ctx context.Context, cell grid.Cell, id cache.TokenID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reachLocked(cell); err != nil {
		return c.reject(ctx, "collect", err)
	}
	if err := c.state.Collect(cell, id); err != nil {
		return c.reject(ctx, "collect", err)
	}
	c.cfg.Metrics.RecordCollect()
	c.autosaveLocked(ctx)
	return nil
}

func (c *Controller) Deposit(ctx context.Context, id cache.TokenID, cell grid.Cell) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reachLocked(cell); err != nil {
		return c.reject(ctx, "deposit", err)
	}
	if err := c.state.Deposit(id, cell); err != nil {
		return c.reject(ctx, "deposit", err)
	}
	c.cfg.Metrics.RecordDeposit()
	c.autosaveLocked(ctx)
	return nil
}

func (c *Controller) reachLocked(target grid.Cell) error {
	player := *c.cfg.Board.CellFor(c.position)
	d := grid.Distance(player, target)
	if d > c.cfg.InteractionRadius {
		return &TooFarError{Player: player, Target: target, Distance: d, Limit: c.cfg.InteractionRadius}
	}
	return nil
}

func (c *Controller) reject(ctx context.Context, op string, err error) error {
	c.cfg.Metrics.RecordRejected(rejectReason(err))
	hlog.CtxDebugf(ctx, "session: %s rejected: %v", op, err)
	return err
}

func (c *Controller) autosaveLocked(ctx context.Context) {
	if !c.cfg.Autosave || c.cfg.Persistence.Slots == nil {
		return
	}
	if err := c.saveLocked(ctx); err != nil {
		hlog.CtxErrorf(ctx, "session: autosave failed, keeping in-memory state: %v", err)
	}
}

func (c *Controller) saveLocked(ctx context.Context) error {
	err := c.cfg.Persistence.Save(ctx, c.state)
	c.cfg.Metrics.RecordSave(err)
	return err
}

// CellsNear lists the neighborhood of p with cache presence flags.
func (c *Controller) CellsNear(p grid.Position) []CellView {
	c.mu.Lock()
	defer c.mu.Unlock()
	cells := c.cfg.Board.CellsNear(p)
	out := make([]CellView, 0, len(cells))
	for _, cell := range cells {
		_, ok := c.state.Get(*cell)
		out = append(out, CellView{
			Cell:     *cell,
			Key:      cell.Key(),
			Bounds:   c.cfg.Board.BoundsOf(*cell),
			HasCache: ok,
		})
	}
	return out
}

func (c *Controller) Cache(cell grid.Cell) (CacheView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.state.Get(cell)
	if !ok {
		return CacheView{}, fmt.Errorf("cache %s: %w", cell.Key(), ports.ErrNotFound)
	}
	return c.cacheViewLocked(entry), nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	caches := []CacheView{}
	for _, cell := range c.cfg.Board.CellsNear(c.position) {
		if entry, ok := c.state.Get(*cell); ok {
			caches = append(caches, c.cacheViewLocked(entry))
		}
	}
	v := View{
		Mode:       c.mode,
		Position:   c.position,
		Cell:       *c.cfg.Board.CellFor(c.position),
		Wallet:     c.state.Wallet(),
		Caches:     caches,
		PathLength: len(c.path),
	}
	if c.lastFeedErr != nil {
		v.LastFeedError = c.lastFeedErr.Error()
	}
	return v
}

func (c *Controller) cacheViewLocked(entry *cache.Cache) CacheView {
	player := *c.cfg.Board.CellFor(c.position)
	d := grid.Distance(player, entry.Cell())
	return CacheView{
		Cell:     entry.Cell(),
		Key:      entry.Cell().Key(),
		Bounds:   c.cfg.Board.BoundsOf(entry.Cell()),
		Tokens:   entry.Tokens(),
		Distance: d,
		InReach:  d <= c.cfg.InteractionRadius,
	}
}

// Close stops tracking and writes a final save.
func (c *Controller) Close(ctx context.Context) error {
	c.StopTracking()
	if c.cfg.Persistence.Slots == nil {
		return nil
	}
	return c.Save(ctx)
}

type noopMetrics struct{}

func (noopMetrics) RecordCollect()        {}
func (noopMetrics) RecordDeposit()        {}
func (noopMetrics) RecordRejected(string) {}
func (noopMetrics) RecordSpawn(int)       {}
func (noopMetrics) RecordSave(error)      {}
