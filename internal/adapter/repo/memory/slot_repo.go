package memory

import "context"

type SlotRepo struct {
	store *Store
}

func NewSlotRepo(store *Store) SlotRepo {
	return SlotRepo{store: store}
}

func (r SlotRepo) Load(_ context.Context, slot string) ([]byte, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	data, ok := r.store.slots[slot]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, data...), true, nil
}

func (r SlotRepo) SaveSlots(ctx context.Context, slots map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for slot, data := range slots {
		r.store.slots[slot] = append([]byte{}, data...)
	}
	return nil
}
