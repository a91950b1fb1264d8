package service

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/store"
)

// StoreProvider exposes the stores a transactional operation can touch.
type StoreProvider interface {
	Events() store.EventStore
	Projects() store.ProjectStore
	Boards() store.BoardStore
	Columns() store.ColumnStore
	Users() store.UserStore
	Tasks() store.TaskStore
	Comments() store.CommentStore
	Stickers() store.StickerStore
	Departments() store.DepartmentStore
	IssueLinks() store.IssueLinkStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q db.Querier) error {
		return fn(store.NewStores(q))
	})
}
