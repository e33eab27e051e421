package ports

import (
	"context"

	"cachequest/internal/domain/grid"
)

// PositionEvent carries either a new position or a feed error.
type PositionEvent struct {
	Position grid.Position
	Err      error
}

// Subscription is a live position stream. Events is closed once the feed
// ends or Close has been called.
type Subscription interface {
	Events() <-chan PositionEvent
	Close() error
}

type PositionFeed interface {
	Subscribe(ctx context.Context) (Subscription, error)
}
