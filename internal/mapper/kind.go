package mapper

import (
	"strings"

	"boardsync.app/mirror/internal/domain"
)

// KindFor derives the entity kind an event addresses. Source event types
// are "<entity>-<action>" ("task-created", "project-updated"); the part
// before the first dash names the entity. Types without a dash fall back
// to the entity type recorded at ingest. Chat messages are mirrored as
// comments.
func KindFor(eventType, entityType string) domain.EntityKind {
	if entityType == "" {
		entityType = string(domain.KindUnknown)
	}

	kind := entityType
	if strings.Contains(eventType, "-") {
		kind = strings.SplitN(eventType, "-", 2)[0]
	}

	if kind == "chat_message" {
		return domain.KindComment
	}
	return domain.EntityKind(kind)
}
