// Package cache models a single cell's cache and its memento.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"cachequest/internal/domain/grid"
)

var ErrCorruptSnapshot = errors.New("corrupt cache snapshot")

// Snapshot is an opaque, order-preserving encoding of a cache's tokens.
type Snapshot []byte

// Cache holds the tokens currently stored in one cell. Token movement between
// caches and the wallet goes through world.State; Cache itself does not
// enforce cross-container uniqueness.
type Cache struct {
	cell   grid.Cell
	tokens []TokenID
}

func New(i, j int, tokens []TokenID) *Cache {
	return &Cache{
		cell:   grid.Cell{I: i, J: j},
		tokens: append([]TokenID{}, tokens...),
	}
}

func (c *Cache) Cell() grid.Cell { return c.cell }

func (c *Cache) Len() int { return len(c.tokens) }

// Tokens returns a copy of the token list.
func (c *Cache) Tokens() []TokenID {
	return append([]TokenID{}, c.tokens...)
}

func (c *Cache) Contains(id TokenID) bool {
	return slices.Contains(c.tokens, id)
}

// RemoveToken drops the first occurrence of id. A missing id is a no-op.
func (c *Cache) RemoveToken(id TokenID) bool {
	idx := slices.Index(c.tokens, id)
	if idx < 0 {
		return false
	}
	c.tokens = slices.Delete(c.tokens, idx, idx+1)
	return true
}

func (c *Cache) AddToken(id TokenID) {
	c.tokens = append(c.tokens, id)
}

func (c *Cache) Snapshot() Snapshot {
	b, _ := json.Marshal(c.tokens)
	return b
}

// Restore replaces the token list with the snapshot's contents. On error the
// current contents are left as they were.
func (c *Cache) Restore(s Snapshot) error {
	tokens, err := DecodeSnapshot(s)
	if err != nil {
		return err
	}
	c.tokens = tokens
	return nil
}

// DecodeSnapshot parses s without applying it.
func DecodeSnapshot(s Snapshot) ([]TokenID, error) {
	var tokens []TokenID
	if err := json.Unmarshal(s, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: not a token list", ErrCorruptSnapshot)
	}
	for _, id := range tokens {
		if _, err := ParseTokenID(id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
	}
	return tokens, nil
}
