package gormrepo

import (
	"context"

	"gorm.io/gorm"
)

type slotTxKey struct{}

// InTx runs fn in one transaction on db. Slot writes made with the ctx handed
// to fn commit or roll back together. A ctx that already carries a
// transaction is reused as is.
func InTx(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := boundTx(ctx); ok {
		return fn(ctx)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, slotTxKey{}, tx))
	})
}

func boundTx(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(slotTxKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// conn is the handle slot queries run on: the bound transaction, else db.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := boundTx(ctx); ok {
		return tx
	}
	return db.WithContext(ctx)
}
