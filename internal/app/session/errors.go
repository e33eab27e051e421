package session

import (
	"errors"
	"fmt"

	"cachequest/internal/domain/grid"
	"cachequest/internal/domain/world"
)

var (
	ErrInvalidConfig    = errors.New("invalid session config")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidMode      = errors.New("invalid mode")
	ErrManualDisabled   = errors.New("manual movement disabled while tracking")
	ErrNoFeed           = errors.New("position feed not configured")
	ErrFeedClosed       = errors.New("position feed closed")
	ErrTooFar           = errors.New("cache out of reach")
)

// TooFarError reports a failed proximity check.
type TooFarError struct {
	Player   grid.Cell
	Target   grid.Cell
	Distance float64
	Limit    float64
}

func (e *TooFarError) Error() string {
	return fmt.Sprintf("cache %s is %.2f cells from %s (limit %.2f)", e.Target.Key(), e.Distance, e.Player.Key(), e.Limit)
}

func (e *TooFarError) Unwrap() error { return ErrTooFar }

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrTooFar):
		return "too_far"
	case errors.Is(err, world.ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, world.ErrTokenNotHeld):
		return "token_not_held"
	case errors.Is(err, world.ErrCacheNotFound):
		return "cache_not_found"
	case errors.Is(err, world.ErrDuplicateToken):
		return "duplicate_token"
	default:
		return "other"
	}
}
