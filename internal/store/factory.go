package store

import (
	"boardsync.app/mirror/core/db"
)

// Stores hands out typed stores bound to one Querier. Bind it to the
// pool for standalone reads, or to a transaction via db.WithTx when a
// group of writes must land atomically.
type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Events() EventStore {
	return newEventStore(s.q)
}

func (s *Stores) Projects() ProjectStore {
	return newProjectStore(s.q)
}

func (s *Stores) Boards() BoardStore {
	return newBoardStore(s.q)
}

func (s *Stores) Columns() ColumnStore {
	return newColumnStore(s.q)
}

func (s *Stores) Users() UserStore {
	return newUserStore(s.q)
}

func (s *Stores) Tasks() TaskStore {
	return newTaskStore(s.q)
}

func (s *Stores) Comments() CommentStore {
	return newCommentStore(s.q)
}

func (s *Stores) Stickers() StickerStore {
	return newStickerStore(s.q)
}

func (s *Stores) Departments() DepartmentStore {
	return newDepartmentStore(s.q)
}

func (s *Stores) IssueLinks() IssueLinkStore {
	return newIssueLinkStore(s.q)
}

func (s *Stores) Stats() StatsStore {
	return newStatsStore(s.q)
}
