package service

import "context"

// SourceAPI is the slice of the source system's client the services
// consume. Payloads stay as raw maps; the mapper package owns turning
// them into models.
type SourceAPI interface {
	GetTask(ctx context.Context, id string) (map[string]any, error)
	GetColumn(ctx context.Context, id string) (map[string]any, error)
	GetBoard(ctx context.Context, id string) (map[string]any, error)
	GetProject(ctx context.Context, id string) (map[string]any, error)
	ListProjects(ctx context.Context) ([]map[string]any, error)
	ListUsers(ctx context.Context) ([]map[string]any, error)
	ListStickers(ctx context.Context) ([]map[string]any, error)
	ListBoards(ctx context.Context, projectID string) ([]map[string]any, error)
	ListColumns(ctx context.Context, boardID string) ([]map[string]any, error)
	ListTasks(ctx context.Context, limit, offset int, includeDeleted bool) ([]map[string]any, error)
	ListChatMessages(ctx context.Context, chatID string) ([]map[string]any, error)
}
