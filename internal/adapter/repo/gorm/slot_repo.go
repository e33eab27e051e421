package gormrepo

import (
	"context"
	"errors"
	"sort"
	"time"

	"cachequest/internal/adapter/repo/gorm/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SlotRepo struct {
	db *gorm.DB
}

func NewSlotRepo(db *gorm.DB) SlotRepo {
	return SlotRepo{db: db}
}

func (r SlotRepo) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	var row model.WorldSlot
	err := conn(ctx, r.db).Where("slot = ?", slot).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row.Data, true, nil
}

// SaveSlots upserts every slot in one transaction.
func (r SlotRepo) SaveSlots(ctx context.Context, slots map[string][]byte) error {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)
	now := time.Now()
	return InTx(ctx, r.db, func(ctx context.Context) error {
		for _, name := range names {
			row := model.WorldSlot{Slot: name, Data: slots[name], UpdatedAt: now}
			err := conn(ctx, r.db).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slot"}},
				DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
