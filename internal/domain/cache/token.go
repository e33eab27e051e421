package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cachequest/internal/domain/grid"
)

var ErrInvalidTokenID = errors.New("invalid token id")

// TokenID identifies one collectible. Its text records the cell that minted
// it, which stays true after the token moves to another cache.
type TokenID string

type Provenance struct {
	Cell  grid.Cell
	Index int
}

func MintTokenID(cell grid.Cell, index int) TokenID {
	return TokenID(fmt.Sprintf("coin-%d:%d#%d", cell.I, cell.J, index))
}

func ParseTokenID(id TokenID) (Provenance, error) {
	s := string(id)
	rest, ok := strings.CutPrefix(s, "coin-")
	if !ok {
		return Provenance{}, fmt.Errorf("%w: %q", ErrInvalidTokenID, s)
	}
	coords, idx, ok := strings.Cut(rest, "#")
	if !ok {
		return Provenance{}, fmt.Errorf("%w: %q", ErrInvalidTokenID, s)
	}
	rawI, rawJ, ok := strings.Cut(coords, ":")
	if !ok {
		return Provenance{}, fmt.Errorf("%w: %q", ErrInvalidTokenID, s)
	}
	i, errI := strconv.Atoi(rawI)
	j, errJ := strconv.Atoi(rawJ)
	n, errN := strconv.Atoi(idx)
	if errI != nil || errJ != nil || errN != nil || n < 0 {
		return Provenance{}, fmt.Errorf("%w: %q", ErrInvalidTokenID, s)
	}
	return Provenance{Cell: grid.Cell{I: i, J: j}, Index: n}, nil
}
