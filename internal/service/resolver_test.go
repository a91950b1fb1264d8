package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/service"
)

var _ = Describe("DependencyResolver", func() {
	var (
		ctx      context.Context
		api      *mockSourceAPI
		provider *mockStoreProvider
		cache    *service.ResolveCache
		resolver service.DependencyResolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = &mockSourceAPI{}
		provider = newMockStoreProvider()
		cache = service.NewResolveCache()
		resolver = service.NewDependencyResolver(api, txRunnerFor(provider), nil)
	})

	It("mirrors a missing project from the source", func() {
		api.getProjectFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "title": "Recovered"}, nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindProject, "p-1")).To(BeTrue())
		Expect(provider.projects.upsertCalls).To(Equal(1))
	})

	It("memoizes successful outcomes per run", func() {
		calls := 0
		api.getProjectFn = func(ctx context.Context, id string) (map[string]any, error) {
			calls++
			return map[string]any{"id": id}, nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindProject, "p-1")).To(BeTrue())
		Expect(resolver.Resolve(ctx, cache, domain.KindProject, "p-1")).To(BeTrue())
		Expect(calls).To(Equal(1))
		Expect(provider.projects.upsertCalls).To(Equal(1))
	})

	It("memoizes failures so a dead reference costs one fetch", func() {
		calls := 0
		api.getProjectFn = func(ctx context.Context, id string) (map[string]any, error) {
			calls++
			return nil, errors.New("404")
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindProject, "p-gone")).To(BeFalse())
		Expect(resolver.Resolve(ctx, cache, domain.KindProject, "p-gone")).To(BeFalse())
		Expect(calls).To(Equal(1))
	})

	It("refuses empty ids", func() {
		Expect(resolver.Resolve(ctx, cache, domain.KindProject, "")).To(BeFalse())
		Expect(provider.projects.upsertCalls).To(Equal(0))
	})

	It("pulls in a board's project before the board itself", func() {
		api.getBoardFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "title": "B", "projectId": "p-1"}, nil
		}
		api.getProjectFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "title": "P"}, nil
		}
		var sequence []string
		provider.projects.upsertFn = func(ctx context.Context, p *model.Project) error {
			sequence = append(sequence, "project:"+p.ID)
			return nil
		}
		provider.boards.upsertFn = func(ctx context.Context, b *model.Board) error {
			sequence = append(sequence, "board:"+b.ID)
			return nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindBoard, "b-1")).To(BeTrue())
		Expect(sequence).To(Equal([]string{"project:p-1", "board:b-1"}))
	})

	It("pulls in a column's board chain", func() {
		api.getColumnFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "title": "Doing", "boardId": "b-1"}, nil
		}
		api.getBoardFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "title": "B"}, nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindColumn, "c-1")).To(BeTrue())
		Expect(provider.boards.upsertCalls).To(Equal(1))
		Expect(provider.columns.upsertCalls).To(Equal(1))
	})

	It("retries a task upsert after fetching its missing column", func() {
		api.getTaskFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "title": "T", "columnId": "c-1", "assigned": []any{"u-1"}}, nil
		}
		api.getColumnFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "title": "Doing"}, nil
		}
		attempts := 0
		provider.tasks.upsertFn = func(ctx context.Context, t *model.Task) error {
			attempts++
			if attempts == 1 {
				return &domain.MissingDependencyError{Kind: domain.KindColumn, ID: "c-1"}
			}
			return nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindTask, "t-1")).To(BeTrue())
		Expect(attempts).To(Equal(2))
		Expect(provider.columns.upsertCalls).To(Equal(1))
		// Backfilled tasks never touch the assignee set.
		Expect(provider.tasks.replaceCalls).To(Equal(0))
	})

	It("gives up on a task when the column cannot be fetched", func() {
		api.getTaskFn = func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{"id": id, "columnId": "c-1"}, nil
		}
		api.getColumnFn = func(ctx context.Context, id string) (map[string]any, error) {
			return nil, errors.New("404")
		}
		provider.tasks.upsertFn = func(ctx context.Context, t *model.Task) error {
			return &domain.MissingDependencyError{Kind: domain.KindColumn, ID: "c-1"}
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindTask, "t-1")).To(BeFalse())
	})

	It("finds users in the company listing and fetches it once", func() {
		api.listUsersFn = func(ctx context.Context) ([]map[string]any, error) {
			return []map[string]any{
				{"id": "u-1", "name": "A"},
				{"id": "u-2", "name": "B"},
			}, nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindUser, "u-2")).To(BeTrue())
		Expect(resolver.Resolve(ctx, cache, domain.KindUser, "u-1")).To(BeTrue())
		Expect(api.listUsersCalls).To(Equal(1))
		Expect(provider.users.upsertCalls).To(Equal(2))
	})

	It("reports users absent from the listing", func() {
		api.listUsersFn = func(ctx context.Context) ([]map[string]any, error) {
			return []map[string]any{{"id": "u-1"}}, nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindUser, "u-404")).To(BeFalse())
		Expect(provider.users.upsertCalls).To(Equal(0))
	})

	It("resolves stickers by flavour", func() {
		api.listStickersFn = func(ctx context.Context) ([]map[string]any, error) {
			return []map[string]any{
				{"id": "s-sprint", "name": "Sprint", "states": []any{
					map[string]any{"id": "st-1", "begin": float64(1700000000000)},
				}},
				{"id": "s-string", "name": "Priority", "states": []any{
					map[string]any{"id": "st-2", "name": "High"},
				}},
			}, nil
		}

		Expect(resolver.Resolve(ctx, cache, domain.KindSticker, "s-sprint")).To(BeTrue())
		Expect(resolver.Resolve(ctx, cache, domain.KindSticker, "s-string")).To(BeTrue())
		Expect(provider.stickers.sprintCalls).To(Equal(1))
		Expect(provider.stickers.stringCalls).To(Equal(1))
		Expect(api.listStickersCalls).To(Equal(1))
	})

	It("has no resolution path for comments", func() {
		Expect(resolver.Resolve(ctx, cache, domain.KindComment, "m-1")).To(BeFalse())
	})

	Describe("Prefetch", func() {
		It("mirrors the user and sticker sets up front", func() {
			api.listUsersFn = func(ctx context.Context) ([]map[string]any, error) {
				return []map[string]any{
					{"id": "u-1", "name": "A"},
					{"name": "no id, skipped"},
				}, nil
			}
			api.listStickersFn = func(ctx context.Context) ([]map[string]any, error) {
				return []map[string]any{
					{"id": "s-1", "name": "Priority", "states": []any{map[string]any{"id": "st-1", "name": "High"}}},
				}, nil
			}

			resolver.Prefetch(ctx, cache)
			Expect(provider.users.upsertCalls).To(Equal(1))
			Expect(provider.stickers.stringCalls).To(Equal(1))
		})

		It("still prefetches stickers when the user listing fails", func() {
			api.listUsersFn = func(ctx context.Context) ([]map[string]any, error) {
				return nil, errors.New("503")
			}
			api.listStickersFn = func(ctx context.Context) ([]map[string]any, error) {
				return []map[string]any{
					{"id": "s-1", "name": "Priority", "states": []any{map[string]any{"id": "st-1"}}},
				}, nil
			}

			resolver.Prefetch(ctx, cache)
			Expect(provider.users.upsertCalls).To(Equal(0))
			Expect(provider.stickers.stringCalls).To(Equal(1))
		})

		It("warms the listings later resolves read", func() {
			api.listUsersFn = func(ctx context.Context) ([]map[string]any, error) {
				return []map[string]any{{"id": "u-1"}}, nil
			}

			resolver.Prefetch(ctx, cache)
			Expect(resolver.Resolve(ctx, cache, domain.KindUser, "u-1")).To(BeTrue())
			Expect(api.listUsersCalls).To(Equal(1))
		})
	})
})
