package grid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidKey = errors.New("invalid cell key")

// Cell is a discrete tile on the infinite grid. It is comparable and is used
// directly as a map key.
type Cell struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Key is the "i,j" form used at the storage and HTTP boundaries.
func (c Cell) Key() string {
	return strconv.Itoa(c.I) + "," + strconv.Itoa(c.J)
}

func (c Cell) String() string {
	return c.Key()
}

func ParseKey(key string) (Cell, error) {
	parts := strings.Split(strings.TrimSpace(key), ",")
	if len(parts) != 2 {
		return Cell{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	i, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Cell{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	j, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Cell{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return Cell{I: i, J: j}, nil
}

// Distance is the Euclidean distance between two cells, in cells.
func Distance(a, b Cell) float64 {
	return math.Hypot(float64(a.I-b.I), float64(a.J-b.J))
}

// Position is a point in continuous (latitude, longitude) space.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Position) Offset(dLat, dLng float64) Position {
	return Position{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

type Bounds struct {
	LatMin float64 `json:"lat_min"`
	LngMin float64 `json:"lng_min"`
	LatMax float64 `json:"lat_max"`
	LngMax float64 `json:"lng_max"`
}

// Contains reports whether p lies in the half-open rectangle.
func (b Bounds) Contains(p Position) bool {
	return p.Lat >= b.LatMin && p.Lat < b.LatMax && p.Lng >= b.LngMin && p.Lng < b.LngMax
}
