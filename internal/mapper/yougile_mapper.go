// Package mapper turns raw source payloads into mirror models. Payloads
// reach us two ways, webhook deltas and full API objects, and the two
// shapes disagree on field names, so every parser carries the fallback
// chains for both.
package mapper

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/model"
)

// ParseTask maps a task payload onto the mirror model. Lifecycle
// timestamps accept API names (createdAt) and webhook names (timestamp);
// the store keeps whichever value landed first.
func ParseTask(payload map[string]any) (*model.Task, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindTask}
	}

	t := &model.Task{
		ID:           id,
		Title:        stringOr(payload, "title", ""),
		Description:  stringPtr(payload, "description"),
		ColumnID:     stringPtr(payload, "columnId"),
		Completed:    boolOr(payload, "completed", false),
		Archived:     boolOr(payload, "archived", false),
		Deleted:      boolPtr(payload, "deleted"),
		Deadline:     rawJSON(payload, "deadline"),
		TimeTracking: rawJSON(payload, "timeTracking"),
		Stickers:     rawJSON(payload, "stickers"),
		Checklists:   rawJSON(payload, "checklists"),
		CreatedAt:    parseTime(first(payload, "createdAt", "timestamp")),
		CompletedAt:  parseTime(first(payload, "completedAt", "completedTimestamp")),
		ArchivedAt:   parseTime(first(payload, "archivedAt", "archivedTimestamp")),
	}
	if ids, carried := AssignedUserIDs(payload); carried {
		// An explicitly empty list must stay distinguishable from an
		// absent one: nil means "leave alone", empty means "clear".
		if ids == nil {
			ids = []string{}
		}
		t.Assignees = ids
	}
	return t, nil
}

// AssignedUserIDs extracts the assignee user ids a task payload carries,
// from "assigned" (strings or objects) with "assignedUsers" as fallback.
// carried is false when the payload has neither key, which callers must
// treat as "leave the current assignee set alone".
func AssignedUserIDs(payload map[string]any) (ids []string, carried bool) {
	for _, key := range []string{"assigned", "assignedUsers"} {
		list, ok := payload[key].([]any)
		if !ok {
			continue
		}
		carried = true
		for _, v := range list {
			switch entry := v.(type) {
			case string:
				ids = append(ids, entry)
			case map[string]any:
				if uid, ok := entry["id"].(string); ok && uid != "" {
					ids = append(ids, uid)
				}
			}
		}
		if len(ids) > 0 {
			return ids, true
		}
	}
	return ids, carried
}

func ParseProject(payload map[string]any) (*model.Project, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindProject}
	}
	return &model.Project{
		ID:          id,
		Title:       stringOr(payload, "title", ""),
		Description: stringPtr(payload, "description"),
	}, nil
}

func ParseBoard(payload map[string]any) (*model.Board, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindBoard}
	}
	return &model.Board{
		ID:        id,
		Title:     stringOr(payload, "title", ""),
		ProjectID: stringOr(payload, "projectId", ""),
	}, nil
}

func ParseColumn(payload map[string]any) (*model.Column, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindColumn}
	}
	return &model.Column{
		ID:      id,
		Title:   stringOr(payload, "title", ""),
		Color:   intPtr(payload, "color"),
		BoardID: stringOr(payload, "boardId", ""),
	}, nil
}

func ParseUser(payload map[string]any) (*model.User, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindUser}
	}
	return &model.User{
		ID:    id,
		Name:  firstStringPtr(payload, "name", "realName", "firstName"),
		Email: firstStringPtr(payload, "email", "login"),
		Role:  stringPtr(payload, "role"),
	}, nil
}

// ParseComment maps a chat message onto the comment model. Message ids
// arrive as epoch integers, so the id is coerced to a string. The task
// link hides in different places depending on the payload shape and the
// author field name varies per event action.
func ParseComment(payload map[string]any) (*model.Comment, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindComment}
	}

	props, _ := payload["properties"].(map[string]any)

	taskID := firstString(payload, "chatId", "taskId")
	if taskID == "" && props != nil {
		taskID = idString(props["taskId"])
	}

	authorID := firstString(payload, "actionBy", "authorId", "userId")
	if authorID == "" && props != nil {
		authorID = idString(props["actionBy"])
	}

	text := stringOr(payload, "text", "")
	if text == "" {
		text = stringOr(payload, "message", "")
	}

	ts := epochMillis(payload["timestamp"])
	if ts == nil {
		now := time.Now().UTC()
		ts = &now
	}

	c := &model.Comment{
		ID:        id,
		TaskID:    taskID,
		Text:      text,
		Timestamp: *ts,
	}
	if authorID != "" {
		c.AuthorID = &authorID
	}
	return c, nil
}

// ParseChatMessage maps a chat-history message onto the comment model.
// Chat histories are read per task and the chat id equals the task id,
// so the caller supplies it. The field names differ from webhook chat
// payloads: authors hide behind more aliases and timestamps may be
// ISO strings.
func ParseChatMessage(taskID string, payload map[string]any) (*model.Comment, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindComment}
	}

	authorID := firstString(payload, "authorId", "author", "userId", "fromUserId")

	text := stringOr(payload, "text", "")
	if text == "" {
		text = stringOr(payload, "message", "")
	}

	ts := parseTime(first(payload, "timestamp", "createdAt"))
	if ts == nil {
		now := time.Now().UTC()
		ts = &now
	}

	c := &model.Comment{
		ID:        id,
		TaskID:    taskID,
		Text:      text,
		Timestamp: *ts,
	}
	if authorID != "" {
		c.AuthorID = &authorID
	}
	return c, nil
}

// Sticker is the parsed form of a sticker payload. Exactly one of the
// two flavour fields is set: any state carrying a begin or end makes the
// sticker a sprint sticker, otherwise it is a string sticker.
type Sticker struct {
	Sprint *model.SprintSticker
	String *model.StringSticker
}

func ParseSticker(payload map[string]any) (*Sticker, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindSticker}
	}

	name := stringOr(payload, "name", "")
	deleted := boolOr(payload, "deleted", false)
	states, _ := payload["states"].([]any)

	sprint := false
	for _, s := range states {
		state, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if epochMillis(state["begin"]) != nil || epochMillis(state["end"]) != nil {
			sprint = true
			break
		}
	}

	if sprint {
		sticker := &model.SprintSticker{ID: id, Name: name, Deleted: deleted}
		for _, s := range states {
			state, ok := s.(map[string]any)
			if !ok {
				continue
			}
			stateID := idString(state["id"])
			if stateID == "" {
				continue
			}
			sticker.States = append(sticker.States, model.SprintState{
				ID:        stateID,
				StickerID: id,
				Name:      stringOr(state, "name", ""),
				Begin:     epochMillis(state["begin"]),
				End:       epochMillis(state["end"]),
			})
		}
		return &Sticker{Sprint: sticker}, nil
	}

	sticker := &model.StringSticker{ID: id, Name: name, Deleted: deleted}
	for _, s := range states {
		state, ok := s.(map[string]any)
		if !ok {
			continue
		}
		stateID := idString(state["id"])
		if stateID == "" {
			continue
		}
		sticker.States = append(sticker.States, model.StringState{
			ID:        stateID,
			StickerID: id,
			Name:      stringOr(state, "name", ""),
		})
	}
	return &Sticker{String: sticker}, nil
}

func ParseDepartment(payload map[string]any) (*model.Department, error) {
	id := idString(payload["id"])
	if id == "" {
		return nil, &domain.MissingIDError{Kind: domain.KindDepartment}
	}
	return &model.Department{
		ID:       id,
		Name:     stringPtr(payload, "name"),
		ParentID: stringPtr(payload, "parentId"),
		Deleted:  boolOr(payload, "deleted", false),
	}, nil
}

// idString coerces a payload id to its string form. Most ids are opaque
// strings, chat message ids are epoch integers.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	}
	return ""
}

func first(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := idString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func firstStringPtr(m map[string]any, keys ...string) *string {
	if s := firstString(m, keys...); s != "" {
		return &s
	}
	return nil
}

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return fallback
}

func stringPtr(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func boolOr(m map[string]any, key string, fallback bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}

func boolPtr(m map[string]any, key string) *bool {
	if b, ok := m[key].(bool); ok {
		return &b
	}
	return nil
}

func intPtr(m map[string]any, key string) *int32 {
	if f, ok := m[key].(float64); ok {
		n := int32(f)
		return &n
	}
	return nil
}

// rawJSON re-encodes a structured payload field for storage as it came.
func rawJSON(m map[string]any, key string) json.RawMessage {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// parseTime accepts epoch seconds, epoch milliseconds (heuristically,
// anything past the year 2286 in seconds is treated as milliseconds) and
// ISO 8601 strings. Unparseable values yield nil; timestamps are
// advisory and never fail an event.
func parseTime(v any) *time.Time {
	switch t := v.(type) {
	case float64:
		secs := t
		if secs > 10_000_000_000 {
			secs /= 1000
		}
		sec, frac := math.Modf(secs)
		tm := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		return &tm
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if tm, err := time.Parse(layout, t); err == nil {
				tm = tm.UTC()
				return &tm
			}
		}
	}
	return nil
}

// epochMillis converts a millisecond epoch number, the only form chat
// message and sticker state timestamps take. Zero means unset.
func epochMillis(v any) *time.Time {
	f, ok := v.(float64)
	if !ok || f == 0 {
		return nil
	}
	tm := time.UnixMilli(int64(f)).UTC()
	return &tm
}
