package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/model"
)

type statsStore struct {
	q db.Querier
}

func newStatsStore(q db.Querier) StatsStore {
	return &statsStore{q: q}
}

func (s *statsStore) Collect(ctx context.Context) (*model.MirrorStats, error) {
	var st model.MirrorStats
	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM projects`, &st.Projects},
		{`SELECT COUNT(*) FROM boards`, &st.Boards},
		{`SELECT COUNT(*) FROM columns`, &st.Columns},
		{`SELECT COUNT(*) FROM users`, &st.Users},
		{`SELECT COUNT(*) FROM tasks`, &st.Tasks},
		{`SELECT COUNT(*) FROM comments`, &st.Comments},
		{`SELECT COUNT(*) FROM tasks WHERE completed`, &st.TasksCompleted},
		{`SELECT COUNT(*) FROM tasks WHERE archived`, &st.TasksArchived},
		{`SELECT COUNT(*) FROM tasks WHERE NOT completed AND NOT archived`, &st.TasksActive},
		{`SELECT COUNT(*) FROM webhook_events`, &st.Events},
		{`SELECT COUNT(*) FROM webhook_events WHERE NOT processed`, &st.EventsPending},
		{`SELECT COUNT(*) FROM webhook_events WHERE error IS NOT NULL`, &st.EventsErrored},
	}
	for _, c := range counts {
		if err := s.q.QueryRow(ctx, c.query).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	rows, err := s.q.Query(ctx, `
		SELECT p.id, p.title, COUNT(t.id) AS task_count
		FROM projects p
		LEFT JOIN boards b ON b.project_id = p.id
		LEFT JOIN columns c ON c.board_id = b.id
		LEFT JOIN tasks t ON t.column_id = c.id
		GROUP BY p.id, p.title
		ORDER BY task_count DESC, p.id ASC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row model.ProjectTasks
		if err := rows.Scan(&row.ProjectID, &row.Title, &row.Tasks); err != nil {
			return nil, err
		}
		st.TopProjects = append(st.TopProjects, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &st, nil
}
