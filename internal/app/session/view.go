package session

import (
	"cachequest/internal/domain/cache"
	"cachequest/internal/domain/grid"
)

type CellView struct {
	Cell     grid.Cell   `json:"cell"`
	Key      string      `json:"key"`
	Bounds   grid.Bounds `json:"bounds"`
	HasCache bool        `json:"has_cache"`
}

type CacheView struct {
	Cell     grid.Cell       `json:"cell"`
	Key      string          `json:"key"`
	Bounds   grid.Bounds     `json:"bounds"`
	Tokens   []cache.TokenID `json:"tokens"`
	Distance float64         `json:"distance"`
	InReach  bool            `json:"in_reach"`
}

// View is the plain-data projection the UI renders from.
type View struct {
	Mode          Mode            `json:"mode"`
	Position      grid.Position   `json:"position"`
	Cell          grid.Cell       `json:"cell"`
	Wallet        []cache.TokenID `json:"wallet"`
	Caches        []CacheView     `json:"caches"`
	PathLength    int             `json:"path_length"`
	LastFeedError string          `json:"last_feed_error,omitempty"`
}
