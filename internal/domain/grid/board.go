// Package grid converts continuous positions into canonical cell identities.
package grid

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var ErrInvalidBoard = errors.New("invalid board config")

// Board maps positions to cells and enumerates visible neighborhoods. It keeps
// one canonical *Cell per (i,j), so cells it returns can be compared by
// pointer.
type Board struct {
	tileWidth float64
	radius    int

	mu    sync.RWMutex
	known map[Cell]*Cell
}

func NewBoard(tileWidth float64, visibilityRadius int) (*Board, error) {
	if tileWidth <= 0 || math.IsNaN(tileWidth) || math.IsInf(tileWidth, 0) {
		return nil, fmt.Errorf("%w: tile width %v", ErrInvalidBoard, tileWidth)
	}
	if visibilityRadius < 0 {
		return nil, fmt.Errorf("%w: visibility radius %d", ErrInvalidBoard, visibilityRadius)
	}
	return &Board{
		tileWidth: tileWidth,
		radius:    visibilityRadius,
		known:     make(map[Cell]*Cell),
	}, nil
}

func (b *Board) TileWidth() float64 { return b.tileWidth }

func (b *Board) VisibilityRadius() int { return b.radius }

// Canonical returns the single shared instance for (i,j), creating it on
// first request.
func (b *Board) Canonical(i, j int) *Cell {
	key := Cell{I: i, J: j}
	b.mu.RLock()
	c, ok := b.known[key]
	b.mu.RUnlock()
	if ok {
		return c
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.known[key]; ok {
		return c
	}
	c = &Cell{I: i, J: j}
	b.known[key] = c
	return c
}

// CellFor floors toward negative infinity, so (-0.1,-0.1) with a tile width
// of 1 lands in (-1,-1).
func (b *Board) CellFor(p Position) *Cell {
	i := int(math.Floor(p.Lat / b.tileWidth))
	j := int(math.Floor(p.Lng / b.tileWidth))
	return b.Canonical(i, j)
}

func (b *Board) BoundsOf(c Cell) Bounds {
	latMin := float64(c.I) * b.tileWidth
	lngMin := float64(c.J) * b.tileWidth
	return Bounds{
		LatMin: latMin,
		LngMin: lngMin,
		LatMax: latMin + b.tileWidth,
		LngMax: lngMin + b.tileWidth,
	}
}

// Center is the midpoint of the cell's bounds.
func (b *Board) Center(c Cell) Position {
	bounds := b.BoundsOf(c)
	return Position{
		Lat: (bounds.LatMin + bounds.LatMax) / 2,
		Lng: (bounds.LngMin + bounds.LngMax) / 2,
	}
}

// CellsNear returns the (2r+1)^2 square neighborhood around p's cell. Rows
// run over di from -r to r, columns over dj from -r to r.
func (b *Board) CellsNear(p Position) []*Cell {
	origin := b.CellFor(p)
	r := b.radius
	out := make([]*Cell, 0, (2*r+1)*(2*r+1))
	for di := -r; di <= r; di++ {
		for dj := -r; dj <= r; dj++ {
			out = append(out, b.Canonical(origin.I+di, origin.J+dj))
		}
	}
	return out
}

// Known is the number of canonical cells created so far.
func (b *Board) Known() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.known)
}
