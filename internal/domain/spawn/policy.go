// Package spawn decides, per cell, whether a cache exists and what it
// initially holds. Every decision is a pure function of the cell coordinates.
package spawn

import (
	"fmt"
	"math"

	"cachequest/internal/domain/cache"
	"cachequest/internal/domain/grid"
	"cachequest/internal/domain/luck"
)

const (
	DefaultSpawnProbability = 0.1
	DefaultMaxTokens        = 5
)

type Policy struct {
	SpawnProbability float64
	MaxTokens        int
	// Luck defaults to luck.Luck; tests may substitute a fixed function.
	Luck func(key string) float64
}

func DefaultPolicy() Policy {
	return Policy{
		SpawnProbability: DefaultSpawnProbability,
		MaxTokens:        DefaultMaxTokens,
		Luck:             luck.Luck,
	}
}

func NewPolicy(p Policy) Policy {
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.Luck == nil {
		p.Luck = luck.Luck
	}
	return p
}

func (p Policy) ShouldSpawn(cell grid.Cell) bool {
	return p.luck(fmt.Sprintf("%d,%d", cell.I, cell.J)) < p.SpawnProbability
}

// InitialTokenCount is in [1, MaxTokens].
func (p Policy) InitialTokenCount(cell grid.Cell) int {
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	n := int(math.Floor(p.luck(fmt.Sprintf("%d,%d,coinCount", cell.I, cell.J))*float64(maxTokens))) + 1
	return min(n, maxTokens)
}

func (p Policy) MintTokenIDs(cell grid.Cell, count int) []cache.TokenID {
	out := make([]cache.TokenID, 0, max(count, 0))
	for k := 0; k < count; k++ {
		out = append(out, cache.MintTokenID(cell, k))
	}
	return out
}

// Materialize builds the cell's initial cache, or reports false when the cell
// has none. Callers must only invoke it for cells without a world entry.
func (p Policy) Materialize(cell grid.Cell) (*cache.Cache, bool) {
	if !p.ShouldSpawn(cell) {
		return nil, false
	}
	tokens := p.MintTokenIDs(cell, p.InitialTokenCount(cell))
	return cache.New(cell.I, cell.J, tokens), true
}

func (p Policy) luck(key string) float64 {
	if p.Luck == nil {
		return luck.Luck(key)
	}
	return p.Luck(key)
}
