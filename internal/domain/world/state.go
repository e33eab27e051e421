// Package world owns the mutable world state: every materialized cache and
// the player's wallet. A token lives in exactly one of those containers;
// Collect and Deposit are the only operations that move tokens between them.
package world

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"cachequest/internal/domain/cache"
	"cachequest/internal/domain/grid"
)

var (
	ErrCacheNotFound       = errors.New("cache not found")
	ErrTokenNotFound       = errors.New("token not found in cache")
	ErrTokenNotHeld        = errors.New("token not held in wallet")
	ErrDuplicateToken      = errors.New("duplicate token")
	ErrExclusivityViolated = errors.New("token owned by more than one container")
)

type State struct {
	caches map[grid.Cell]*cache.Cache
	wallet []cache.TokenID
}

func NewState() *State {
	return &State{
		caches: make(map[grid.Cell]*cache.Cache),
		wallet: []cache.TokenID{},
	}
}

func (s *State) Get(cell grid.Cell) (*cache.Cache, bool) {
	c, ok := s.caches[cell]
	return c, ok
}

// Put registers c under its own cell, replacing any previous entry.
func (s *State) Put(c *cache.Cache) {
	s.caches[c.Cell()] = c
}

func (s *State) Len() int { return len(s.caches) }

// Cells lists every cell with a cache, ordered by i then j.
func (s *State) Cells() []grid.Cell {
	out := make([]grid.Cell, 0, len(s.caches))
	for cell := range s.caches {
		out = append(out, cell)
	}
	slices.SortFunc(out, func(a, b grid.Cell) int {
		if c := cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})
	return out
}

func (s *State) Wallet() []cache.TokenID {
	return append([]cache.TokenID{}, s.wallet...)
}

func (s *State) Holds(id cache.TokenID) bool {
	return slices.Contains(s.wallet, id)
}

// ReplaceWallet overwrites the wallet. Duplicate ids are rejected and leave
// the wallet unchanged.
func (s *State) ReplaceWallet(tokens []cache.TokenID) error {
	seen := make(map[cache.TokenID]struct{}, len(tokens))
	for _, id := range tokens {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateToken, id)
		}
		seen[id] = struct{}{}
	}
	s.wallet = append([]cache.TokenID{}, tokens...)
	return nil
}

// Collect moves id from the cache at cell to the end of the wallet.
func (s *State) Collect(cell grid.Cell, id cache.TokenID) error {
	c, ok := s.caches[cell]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCacheNotFound, cell.Key())
	}
	if !c.Contains(id) {
		return fmt.Errorf("%w: %s at %s", ErrTokenNotFound, id, cell.Key())
	}
	if s.Holds(id) {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, id)
	}
	c.RemoveToken(id)
	s.wallet = append(s.wallet, id)
	return nil
}

// Deposit moves id from the wallet to the end of the cache at cell.
func (s *State) Deposit(id cache.TokenID, cell grid.Cell) error {
	idx := slices.Index(s.wallet, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTokenNotHeld, id)
	}
	c, ok := s.caches[cell]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCacheNotFound, cell.Key())
	}
	s.wallet = slices.Delete(s.wallet, idx, idx+1)
	c.AddToken(id)
	return nil
}

// Audit checks that no token appears twice across all caches and the wallet.
func (s *State) Audit() error {
	owner := map[cache.TokenID]string{}
	claim := func(id cache.TokenID, where string) error {
		if prev, ok := owner[id]; ok {
			return fmt.Errorf("%w: %s in %s and %s", ErrExclusivityViolated, id, prev, where)
		}
		owner[id] = where
		return nil
	}
	for _, cell := range s.Cells() {
		for _, id := range s.caches[cell].Tokens() {
			if err := claim(id, "cache "+cell.Key()); err != nil {
				return err
			}
		}
	}
	for _, id := range s.wallet {
		if err := claim(id, "wallet"); err != nil {
			return err
		}
	}
	return nil
}
