package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
)

// TxRunner provides the transaction boundary for multi-repo writes.
type TxRunner interface {
	InTx(dbc dbctx.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx runs fn in a transaction. When dbc already carries one, fn runs in a
// savepoint of it instead.
func (r *gormTxRunner) InTx(dbc dbctx.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if dbc.Tx == nil && (r == nil || r.db == nil) {
		return errors.New("transaction runner has nil db")
	}
	if dbc.Ctx == nil {
		dbc.Ctx = context.Background()
	}
	var fallback *gorm.DB
	if r != nil {
		fallback = r.db
	}
	return dbc.DB(fallback).Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}
