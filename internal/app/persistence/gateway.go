// Package persistence saves and reloads the world state through two named
// slots: the cache map and the wallet.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"cachequest/internal/app/ports"
	"cachequest/internal/domain/cache"
	"cachequest/internal/domain/grid"
	"cachequest/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/common/hlog"
)

var (
	ErrNoStore     = errors.New("slot store not configured")
	ErrCorruptSlot = errors.New("corrupt persisted slot")
)

type Gateway struct {
	Slots ports.SlotStore
}

// Loaded is the decoded content of both slots. A slot that was never written
// is reported as absent; a slot that could not be decoded is listed in
// Corrupt and otherwise treated as absent.
type Loaded struct {
	Caches    map[string]cache.Snapshot
	HasCaches bool
	Wallet    []cache.TokenID
	HasWallet bool
	Corrupt   []string
}

func (g Gateway) Save(ctx context.Context, s *world.State) error {
	if g.Slots == nil {
		return ErrNoStore
	}
	slots, err := Encode(s)
	if err != nil {
		return err
	}
	if err := g.Slots.SaveSlots(ctx, slots); err != nil {
		return fmt.Errorf("save slots: %w", err)
	}
	return nil
}

// Encode renders s into slot blobs. Output is deterministic: cache keys are
// sorted and each value is the cache snapshot verbatim.
func Encode(s *world.State) (map[string][]byte, error) {
	caches := make(map[string]json.RawMessage, s.Len())
	for _, cell := range s.Cells() {
		c, _ := s.Get(cell)
		caches[cell.Key()] = json.RawMessage(c.Snapshot())
	}
	cachesBlob, err := json.Marshal(caches)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ports.SlotCaches, err)
	}
	coinsBlob, err := json.Marshal(s.Wallet())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ports.SlotCoins, err)
	}
	return map[string][]byte{
		ports.SlotCaches: cachesBlob,
		ports.SlotCoins:  coinsBlob,
	}, nil
}

func (g Gateway) Load(ctx context.Context) (Loaded, error) {
	if g.Slots == nil {
		return Loaded{}, ErrNoStore
	}
	var out Loaded

	raw, ok, err := g.Slots.Load(ctx, ports.SlotCaches)
	if err != nil {
		return Loaded{}, fmt.Errorf("load %s: %w", ports.SlotCaches, err)
	}
	if ok {
		caches, err := decodeCaches(raw)
		if err != nil {
			hlog.CtxWarnf(ctx, "persistence: ignoring slot %s: %v", ports.SlotCaches, err)
			out.Corrupt = append(out.Corrupt, ports.SlotCaches)
		} else {
			out.Caches = caches
			out.HasCaches = true
		}
	}

	raw, ok, err = g.Slots.Load(ctx, ports.SlotCoins)
	if err != nil {
		return Loaded{}, fmt.Errorf("load %s: %w", ports.SlotCoins, err)
	}
	if ok {
		wallet, err := decodeWallet(raw)
		if err != nil {
			hlog.CtxWarnf(ctx, "persistence: ignoring slot %s: %v", ports.SlotCoins, err)
			out.Corrupt = append(out.Corrupt, ports.SlotCoins)
		} else {
			out.Wallet = wallet
			out.HasWallet = true
		}
	}
	return out, nil
}

func decodeCaches(raw []byte) (map[string]cache.Snapshot, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: not an object", ErrCorruptSlot)
	}
	out := make(map[string]cache.Snapshot, len(entries))
	for key, v := range entries {
		out[key] = cache.Snapshot(v)
	}
	return out, nil
}

func decodeWallet(raw []byte) ([]cache.TokenID, error) {
	var wallet []cache.TokenID
	if err := json.Unmarshal(raw, &wallet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: not a token list", ErrCorruptSlot)
	}
	for _, id := range wallet {
		if _, err := cache.ParseTokenID(id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
		}
	}
	return wallet, nil
}

type ApplyReport struct {
	Restored       int
	Skipped        []string
	WalletRestored bool
	// Audit is the exclusivity check result after applying.
	Audit error
}

// Apply restores loaded content into s. Caches that fail to decode are
// skipped and keep whatever s already holds for them.
func Apply(ctx context.Context, loaded Loaded, s *world.State) ApplyReport {
	var report ApplyReport
	keys := make([]string, 0, len(loaded.Caches))
	for key := range loaded.Caches {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cell, err := grid.ParseKey(key)
		if err != nil {
			hlog.CtxWarnf(ctx, "persistence: skipping cache %q: %v", key, err)
			report.Skipped = append(report.Skipped, key)
			continue
		}
		snap := loaded.Caches[key]
		if existing, ok := s.Get(cell); ok {
			if err := existing.Restore(snap); err != nil {
				hlog.CtxWarnf(ctx, "persistence: keeping in-memory cache %s: %v", key, err)
				report.Skipped = append(report.Skipped, key)
				continue
			}
			report.Restored++
			continue
		}
		c := cache.New(cell.I, cell.J, nil)
		if err := c.Restore(snap); err != nil {
			hlog.CtxWarnf(ctx, "persistence: skipping cache %s: %v", key, err)
			report.Skipped = append(report.Skipped, key)
			continue
		}
		s.Put(c)
		report.Restored++
	}

	if loaded.HasWallet {
		if err := s.ReplaceWallet(loaded.Wallet); err != nil {
			hlog.CtxWarnf(ctx, "persistence: keeping in-memory wallet: %v", err)
		} else {
			report.WalletRestored = true
		}
	}

	if err := s.Audit(); err != nil {
		hlog.CtxErrorf(ctx, "persistence: restored state fails exclusivity audit: %v", err)
		report.Audit = err
	}
	return report
}
