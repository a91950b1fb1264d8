package yougile

import (
	"context"
	"net/url"
	"strconv"
)

func (c *Client) GetTask(ctx context.Context, id string) (map[string]any, error) {
	return c.getObject(ctx, "/tasks/"+id)
}

func (c *Client) GetColumn(ctx context.Context, id string) (map[string]any, error) {
	return c.getObject(ctx, "/columns/"+id)
}

func (c *Client) GetBoard(ctx context.Context, id string) (map[string]any, error) {
	return c.getObject(ctx, "/boards/"+id)
}

func (c *Client) GetProject(ctx context.Context, id string) (map[string]any, error) {
	return c.getObject(ctx, "/projects/"+id)
}

func (c *Client) ListProjects(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, "/projects", url.Values{"limit": {"1000"}})
}

// ListUsers returns all company employees. There is no single-user
// endpoint, callers scan the list for the id they need.
func (c *Client) ListUsers(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, "/users", url.Values{"limit": {"1000"}})
}

// ListStickers returns the company sprint sticker definitions, which is
// also where string stickers surface.
func (c *Client) ListStickers(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, "/sprint-stickers", url.Values{"limit": {"1000"}})
}

func (c *Client) ListBoards(ctx context.Context, projectID string) ([]map[string]any, error) {
	return c.getList(ctx, "/boards", url.Values{
		"projectId": {projectID},
		"limit":     {"1000"},
	})
}

func (c *Client) ListColumns(ctx context.Context, boardID string) ([]map[string]any, error) {
	return c.getList(ctx, "/columns", url.Values{
		"boardId": {boardID},
		"limit":   {"1000"},
	})
}

// ListTasks returns one page of company tasks. The task collection is
// the only one too large for a single request, so paging is explicit.
func (c *Client) ListTasks(ctx context.Context, limit, offset int, includeDeleted bool) ([]map[string]any, error) {
	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	if includeDeleted {
		params.Set("includeDeleted", "true")
	}
	return c.getList(ctx, "/tasks", params)
}

// ListChatMessages returns the messages of a task chat; chat ids equal
// task ids.
func (c *Client) ListChatMessages(ctx context.Context, chatID string) ([]map[string]any, error) {
	return c.getList(ctx, "/chats/"+chatID+"/messages", url.Values{"limit": {"1000"}})
}

func (c *Client) ListWebhooks(ctx context.Context, includeDeleted bool) ([]map[string]any, error) {
	params := url.Values{}
	if includeDeleted {
		params.Set("includeDeleted", "true")
	}
	return c.getList(ctx, "/webhooks", params)
}

// CreateWebhook subscribes url to deliveries matching the event pattern
// ("task-*" covers every task event).
func (c *Client) CreateWebhook(ctx context.Context, url, event string) (map[string]any, error) {
	return c.postObject(ctx, "/webhooks", map[string]any{
		"url":   url,
		"event": event,
	})
}

// UpdateWebhook patches subscription fields. Only the keys present in
// fields are sent; deletion is an update with {"deleted": true}.
func (c *Client) UpdateWebhook(ctx context.Context, id string, fields map[string]any) (map[string]any, error) {
	return c.putObject(ctx, "/webhooks/"+id, fields)
}
