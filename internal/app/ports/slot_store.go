package ports

import "context"

// Persisted slot names.
const (
	SlotCaches = "caches"
	SlotCoins  = "coins"
)

// SlotStore is a durable key-value medium holding named blobs.
type SlotStore interface {
	// Load returns ok=false for a slot that was never written.
	Load(ctx context.Context, slot string) (data []byte, ok bool, err error)
	// SaveSlots writes every entry atomically: a concurrent Load sees either
	// all of the previous values or all of the new ones.
	SaveSlots(ctx context.Context, slots map[string][]byte) error
}
