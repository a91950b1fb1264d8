package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/model"
)

type issueLinkStore struct {
	q db.Querier
}

func newIssueLinkStore(q db.Querier) IssueLinkStore {
	return &issueLinkStore{q: q}
}

func (s *issueLinkStore) Map(ctx context.Context) (map[string]model.TaskIssueLink, error) {
	rows, err := s.q.Query(ctx, `SELECT task_id, issue_iid, synced_at FROM task_issue_links`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]model.TaskIssueLink)
	for rows.Next() {
		var link model.TaskIssueLink
		if err := rows.Scan(&link.TaskID, &link.IssueIID, &link.SyncedAt); err != nil {
			return nil, err
		}
		result[link.TaskID] = link
	}
	return result, rows.Err()
}

func (s *issueLinkStore) Upsert(ctx context.Context, link *model.TaskIssueLink) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO task_issue_links (task_id, issue_iid)
		VALUES ($1, $2)
		ON CONFLICT (task_id) DO UPDATE SET
			issue_iid = EXCLUDED.issue_iid,
			synced_at = now()
	`, link.TaskID, link.IssueIID)
	return missingDependency(err, map[string]string{"task_issue_links_task_id_fkey": link.TaskID})
}
