// Package scripted is a position feed that replays a fixed path, for demos
// and for driving tracked mode without a device.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"cachequest/internal/app/ports"
	"cachequest/internal/domain/grid"
)

var ErrEmptyPath = errors.New("scripted feed has no positions")

type Feed struct {
	Positions []grid.Position
	// Interval paces events; zero sends them back to back.
	Interval time.Duration
	Loop     bool
}

func (f Feed) Subscribe(ctx context.Context) (ports.Subscription, error) {
	if len(f.Positions) == 0 {
		return nil, ErrEmptyPath
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{
		events: make(chan ports.PositionEvent),
		cancel: cancel,
	}
	go s.run(ctx, append([]grid.Position{}, f.Positions...), f.Interval, f.Loop)
	return s, nil
}

type subscription struct {
	events chan ports.PositionEvent
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Events() <-chan ports.PositionEvent { return s.events }

func (s *subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

func (s *subscription) run(ctx context.Context, path []grid.Position, interval time.Duration, loop bool) {
	defer close(s.events)
	for {
		for _, p := range path {
			if interval > 0 {
				timer := time.NewTimer(interval)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			select {
			case <-ctx.Done():
				return
			case s.events <- ports.PositionEvent{Position: p}:
			}
		}
		if !loop {
			return
		}
	}
}

// ParsePath reads "lat,lng;lat,lng;..." into positions.
func ParsePath(raw string) ([]grid.Position, error) {
	var out []grid.Position
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lat, lng, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("invalid path point %q", pair)
		}
		la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q: %w", pair, err)
		}
		ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q: %w", pair, err)
		}
		out = append(out, grid.Position{Lat: la, Lng: ln})
	}
	return out, nil
}
