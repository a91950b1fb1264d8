package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/mapper"
)

// DependencyResolver pulls a missing entity from the source API into the
// mirror so a failed upsert can be retried. Resolve reports whether the
// entity is now present locally.
type DependencyResolver interface {
	Resolve(ctx context.Context, cache *ResolveCache, kind domain.EntityKind, id string) bool
	// Prefetch warms the mirror with the company-wide entity sets that
	// have no single-fetch endpoint. Failures are logged, never fatal.
	Prefetch(ctx context.Context, cache *ResolveCache)
}

// ResolveCache carries per-run resolution state: the outcome of every
// attempted id, plus the memoized company listings so repeated user or
// sticker misses cost one API call per run instead of one per miss.
type ResolveCache struct {
	outcomes map[string]bool

	users        []map[string]any
	usersLoaded  bool
	stickers     []map[string]any
	stickersLoad bool
}

func NewResolveCache() *ResolveCache {
	return &ResolveCache{outcomes: make(map[string]bool)}
}

func (c *ResolveCache) outcome(kind domain.EntityKind, id string) (bool, bool) {
	ok, seen := c.outcomes[string(kind)+":"+id]
	return ok, seen
}

func (c *ResolveCache) setOutcome(kind domain.EntityKind, id string, ok bool) {
	c.outcomes[string(kind)+":"+id] = ok
}

// userList returns the memoized company users, fetching once per run.
// Fetch errors are not memoized so a later call may still succeed.
func (c *ResolveCache) userList(ctx context.Context, api SourceAPI) ([]map[string]any, error) {
	if c.usersLoaded {
		return c.users, nil
	}
	list, err := api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	c.users, c.usersLoaded = list, true
	return list, nil
}

func (c *ResolveCache) stickerList(ctx context.Context, api SourceAPI) ([]map[string]any, error) {
	if c.stickersLoad {
		return c.stickers, nil
	}
	list, err := api.ListStickers(ctx)
	if err != nil {
		return nil, err
	}
	c.stickers, c.stickersLoad = list, true
	return list, nil
}

type sourceResolver struct {
	api      SourceAPI
	txRunner TxRunner
	logger   *slog.Logger
}

func NewDependencyResolver(api SourceAPI, txRunner TxRunner, logger *slog.Logger) DependencyResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &sourceResolver{api: api, txRunner: txRunner, logger: logger}
}

func (r *sourceResolver) Resolve(ctx context.Context, cache *ResolveCache, kind domain.EntityKind, id string) bool {
	if id == "" {
		return false
	}
	if ok, seen := cache.outcome(kind, id); seen {
		return ok
	}

	span := logger.StartSpan(ctx, "resolver.fetch", trace.WithAttributes(
		attribute.String("entity.kind", string(kind)),
		attribute.String("entity.id", id)))
	defer span.End()
	ctx = span.Context()

	r.logger.InfoContext(ctx, "fetching missing entity from source",
		"kind", string(kind), "entity_id", id)

	ok := r.resolve(ctx, cache, kind, id)
	cache.setOutcome(kind, id, ok)
	if !ok {
		r.logger.WarnContext(ctx, "could not resolve missing entity",
			"kind", string(kind), "entity_id", id)
	}
	return ok
}

func (r *sourceResolver) resolve(ctx context.Context, cache *ResolveCache, kind domain.EntityKind, id string) bool {
	switch kind {
	case domain.KindProject:
		return r.resolveProject(ctx, id)
	case domain.KindBoard:
		return r.resolveBoard(ctx, cache, id)
	case domain.KindColumn:
		return r.resolveColumn(ctx, cache, id)
	case domain.KindTask:
		return r.resolveTask(ctx, cache, id)
	case domain.KindUser:
		return r.resolveUser(ctx, cache, id)
	case domain.KindSticker:
		return r.resolveSticker(ctx, cache, id)
	default:
		r.logger.WarnContext(ctx, "no resolution path for kind", "kind", string(kind))
		return false
	}
}

func (r *sourceResolver) resolveProject(ctx context.Context, id string) bool {
	data, err := r.api.GetProject(ctx, id)
	if err != nil {
		r.logger.WarnContext(ctx, "fetching project failed", "entity_id", id, "error", err)
		return false
	}
	project, err := mapper.ParseProject(data)
	if err != nil {
		return false
	}
	err = r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		return sp.Projects().Upsert(ctx, project)
	})
	return err == nil
}

// resolveBoard ensures the board's project first; a board payload always
// names its project and the insert would bounce without it.
func (r *sourceResolver) resolveBoard(ctx context.Context, cache *ResolveCache, id string) bool {
	data, err := r.api.GetBoard(ctx, id)
	if err != nil {
		r.logger.WarnContext(ctx, "fetching board failed", "entity_id", id, "error", err)
		return false
	}
	board, err := mapper.ParseBoard(data)
	if err != nil {
		return false
	}
	if board.ProjectID != "" {
		r.Resolve(ctx, cache, domain.KindProject, board.ProjectID)
	}
	err = r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		return sp.Boards().Upsert(ctx, board)
	})
	return err == nil
}

func (r *sourceResolver) resolveColumn(ctx context.Context, cache *ResolveCache, id string) bool {
	data, err := r.api.GetColumn(ctx, id)
	if err != nil {
		r.logger.WarnContext(ctx, "fetching column failed", "entity_id", id, "error", err)
		return false
	}
	column, err := mapper.ParseColumn(data)
	if err != nil {
		return false
	}
	if column.BoardID != "" {
		r.Resolve(ctx, cache, domain.KindBoard, column.BoardID)
	}
	err = r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		return sp.Columns().Upsert(ctx, column)
	})
	return err == nil
}

// resolveTask retries once after pulling in a missing column; deeper
// ancestors are covered by the column resolution itself. Assignees are
// left alone here, the event that needs them will carry them.
func (r *sourceResolver) resolveTask(ctx context.Context, cache *ResolveCache, id string) bool {
	data, err := r.api.GetTask(ctx, id)
	if err != nil {
		r.logger.WarnContext(ctx, "fetching task failed", "entity_id", id, "error", err)
		return false
	}
	task, err := mapper.ParseTask(data)
	if err != nil {
		return false
	}
	task.Assignees = nil

	upsert := func() error {
		return r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
			return sp.Tasks().Upsert(ctx, task)
		})
	}

	err = upsert()
	if missing, ok := domain.AsMissingDependency(err); ok && missing.Kind == domain.KindColumn {
		if !r.Resolve(ctx, cache, domain.KindColumn, missing.ID) {
			return false
		}
		err = upsert()
	}
	return err == nil
}

func (r *sourceResolver) resolveUser(ctx context.Context, cache *ResolveCache, id string) bool {
	users, err := cache.userList(ctx, r.api)
	if err != nil {
		r.logger.WarnContext(ctx, "listing users failed", "error", err)
		return false
	}
	for _, data := range users {
		if uid, _ := data["id"].(string); uid != id {
			continue
		}
		user, err := mapper.ParseUser(data)
		if err != nil {
			return false
		}
		err = r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
			return sp.Users().Upsert(ctx, user)
		})
		return err == nil
	}
	r.logger.WarnContext(ctx, "user not in company listing", "entity_id", id)
	return false
}

func (r *sourceResolver) resolveSticker(ctx context.Context, cache *ResolveCache, id string) bool {
	stickers, err := cache.stickerList(ctx, r.api)
	if err != nil {
		r.logger.WarnContext(ctx, "listing stickers failed", "error", err)
		return false
	}
	for _, data := range stickers {
		if sid, _ := data["id"].(string); sid != id {
			continue
		}
		sticker, err := mapper.ParseSticker(data)
		if err != nil {
			return false
		}
		err = r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
			if sticker.Sprint != nil {
				return sp.Stickers().UpsertSprint(ctx, sticker.Sprint)
			}
			return sp.Stickers().UpsertString(ctx, sticker.String)
		})
		return err == nil
	}
	r.logger.WarnContext(ctx, "sticker not in company listing", "entity_id", id)
	return false
}

// Prefetch mirrors the whole user and sticker sets up front. Both lack
// single-fetch endpoints, so warming them before a replay avoids a
// list-scan per missing reference.
func (r *sourceResolver) Prefetch(ctx context.Context, cache *ResolveCache) {
	users, err := cache.userList(ctx, r.api)
	if err != nil {
		r.logger.WarnContext(ctx, "prefetching users failed", "error", err)
	} else {
		stored := 0
		for _, data := range users {
			user, err := mapper.ParseUser(data)
			if err != nil {
				continue
			}
			err = r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
				return sp.Users().Upsert(ctx, user)
			})
			if err != nil {
				r.logger.WarnContext(ctx, "prefetch user upsert failed", "entity_id", user.ID, "error", err)
				continue
			}
			stored++
		}
		r.logger.InfoContext(ctx, "prefetched users", "count", stored)
	}

	stickers, err := cache.stickerList(ctx, r.api)
	if err != nil {
		r.logger.WarnContext(ctx, "prefetching stickers failed", "error", err)
		return
	}
	stored := 0
	for _, data := range stickers {
		sticker, err := mapper.ParseSticker(data)
		if err != nil {
			continue
		}
		err = r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
			if sticker.Sprint != nil {
				return sp.Stickers().UpsertSprint(ctx, sticker.Sprint)
			}
			return sp.Stickers().UpsertString(ctx, sticker.String)
		})
		if err != nil {
			r.logger.WarnContext(ctx, "prefetch sticker upsert failed", "error", err)
			continue
		}
		stored++
	}
	r.logger.InfoContext(ctx, "prefetched stickers", "count", stored)
}
