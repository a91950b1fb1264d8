package service_test

import (
	"context"
	"time"

	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/service"
	"boardsync.app/mirror/internal/store"
)

type mockEventStore struct {
	appendFn           func(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error)
	getByIDFn          func(ctx context.Context, id int64) (*model.WebhookEvent, error)
	listUnprocessedFn  func(ctx context.Context, since *time.Time) ([]model.WebhookEvent, error)
	markProcessedFn    func(ctx context.Context, id int64) error
	markFailedFn       func(ctx context.Context, id int64, errMsg string) error
	markProcessedCalls []int64
	markFailedCalls    []int64
}

func (m *mockEventStore) Append(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
	if m.appendFn != nil {
		return m.appendFn(ctx, event)
	}
	return event, true, nil
}

func (m *mockEventStore) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockEventStore) ListUnprocessed(ctx context.Context, since *time.Time) ([]model.WebhookEvent, error) {
	if m.listUnprocessedFn != nil {
		return m.listUnprocessedFn(ctx, since)
	}
	return nil, nil
}

func (m *mockEventStore) MarkProcessed(ctx context.Context, id int64) error {
	m.markProcessedCalls = append(m.markProcessedCalls, id)
	if m.markProcessedFn != nil {
		return m.markProcessedFn(ctx, id)
	}
	return nil
}

func (m *mockEventStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	m.markFailedCalls = append(m.markFailedCalls, id)
	if m.markFailedFn != nil {
		return m.markFailedFn(ctx, id, errMsg)
	}
	return nil
}

func (m *mockEventStore) CountUnprocessed(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockProjectStore struct {
	upsertFn    func(ctx context.Context, p *model.Project) error
	deleteFn    func(ctx context.Context, id string) error
	upsertCalls int
	deleteCalls int
}

func (m *mockProjectStore) Upsert(ctx context.Context, p *model.Project) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	return nil
}

func (m *mockProjectStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (m *mockProjectStore) Delete(ctx context.Context, id string) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockBoardStore struct {
	upsertFn      func(ctx context.Context, b *model.Board) error
	listFn        func(ctx context.Context) ([]model.Board, error)
	deleteStaleFn func(ctx context.Context, projectID string, keep []string) (int64, error)
	upsertCalls   int
	staleCalls    int
}

func (m *mockBoardStore) Upsert(ctx context.Context, b *model.Board) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, b)
	}
	return nil
}

func (m *mockBoardStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (m *mockBoardStore) List(ctx context.Context) ([]model.Board, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockBoardStore) DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error) {
	m.staleCalls++
	if m.deleteStaleFn != nil {
		return m.deleteStaleFn(ctx, projectID, keep)
	}
	return 0, nil
}

type mockColumnStore struct {
	upsertFn      func(ctx context.Context, c *model.Column) error
	listFn        func(ctx context.Context) ([]model.Column, error)
	deleteStaleFn func(ctx context.Context, projectID string, keep []string) (int64, error)
	upsertCalls   int
	staleCalls    int
}

func (m *mockColumnStore) Upsert(ctx context.Context, c *model.Column) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, c)
	}
	return nil
}

func (m *mockColumnStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (m *mockColumnStore) List(ctx context.Context) ([]model.Column, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockColumnStore) DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error) {
	m.staleCalls++
	if m.deleteStaleFn != nil {
		return m.deleteStaleFn(ctx, projectID, keep)
	}
	return 0, nil
}

type mockUserStore struct {
	upsertFn    func(ctx context.Context, u *model.User) error
	upsertCalls int
}

func (m *mockUserStore) Upsert(ctx context.Context, u *model.User) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, u)
	}
	return nil
}

func (m *mockUserStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type mockTaskStore struct {
	upsertFn      func(ctx context.Context, t *model.Task) error
	replaceFn     func(ctx context.Context, taskID string, userIDs []string) error
	listFn        func(ctx context.Context) ([]model.Task, error)
	deleteStaleFn func(ctx context.Context, projectID string, keep []string) (int64, error)
	upsertCalls   int
	replaceCalls  int
	staleCalls    int
}

func (m *mockTaskStore) Upsert(ctx context.Context, t *model.Task) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, t)
	}
	return nil
}

func (m *mockTaskStore) ReplaceAssignees(ctx context.Context, taskID string, userIDs []string) error {
	m.replaceCalls++
	if m.replaceFn != nil {
		return m.replaceFn(ctx, taskID, userIDs)
	}
	return nil
}

func (m *mockTaskStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (m *mockTaskStore) List(ctx context.Context) ([]model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockTaskStore) DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error) {
	m.staleCalls++
	if m.deleteStaleFn != nil {
		return m.deleteStaleFn(ctx, projectID, keep)
	}
	return 0, nil
}

type mockCommentStore struct {
	upsertFn    func(ctx context.Context, c *model.Comment) error
	upsertCalls int
}

func (m *mockCommentStore) Upsert(ctx context.Context, c *model.Comment) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, c)
	}
	return nil
}

type mockStickerStore struct {
	upsertSprintFn func(ctx context.Context, s *model.SprintSticker) error
	upsertStringFn func(ctx context.Context, s *model.StringSticker) error
	sprintCalls    int
	stringCalls    int
}

func (m *mockStickerStore) UpsertSprint(ctx context.Context, s *model.SprintSticker) error {
	m.sprintCalls++
	if m.upsertSprintFn != nil {
		return m.upsertSprintFn(ctx, s)
	}
	return nil
}

func (m *mockStickerStore) UpsertString(ctx context.Context, s *model.StringSticker) error {
	m.stringCalls++
	if m.upsertStringFn != nil {
		return m.upsertStringFn(ctx, s)
	}
	return nil
}

func (m *mockStickerStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type mockDepartmentStore struct {
	upsertFn    func(ctx context.Context, d *model.Department) error
	upsertCalls int
}

func (m *mockDepartmentStore) Upsert(ctx context.Context, d *model.Department) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, d)
	}
	return nil
}

type mockIssueLinkStore struct {
	mapFn       func(ctx context.Context) (map[string]model.TaskIssueLink, error)
	upsertFn    func(ctx context.Context, link *model.TaskIssueLink) error
	upsertCalls int
}

func (m *mockIssueLinkStore) Map(ctx context.Context) (map[string]model.TaskIssueLink, error) {
	if m.mapFn != nil {
		return m.mapFn(ctx)
	}
	return map[string]model.TaskIssueLink{}, nil
}

func (m *mockIssueLinkStore) Upsert(ctx context.Context, link *model.TaskIssueLink) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, link)
	}
	return nil
}

type mockStoreProvider struct {
	events      *mockEventStore
	projects    *mockProjectStore
	boards      *mockBoardStore
	columns     *mockColumnStore
	users       *mockUserStore
	tasks       *mockTaskStore
	comments    *mockCommentStore
	stickers    *mockStickerStore
	departments *mockDepartmentStore
	issueLinks  *mockIssueLinkStore
}

func newMockStoreProvider() *mockStoreProvider {
	return &mockStoreProvider{
		events:      &mockEventStore{},
		projects:    &mockProjectStore{},
		boards:      &mockBoardStore{},
		columns:     &mockColumnStore{},
		users:       &mockUserStore{},
		tasks:       &mockTaskStore{},
		comments:    &mockCommentStore{},
		stickers:    &mockStickerStore{},
		departments: &mockDepartmentStore{},
		issueLinks:  &mockIssueLinkStore{},
	}
}

func (m *mockStoreProvider) Events() store.EventStore           { return m.events }
func (m *mockStoreProvider) Projects() store.ProjectStore       { return m.projects }
func (m *mockStoreProvider) Boards() store.BoardStore           { return m.boards }
func (m *mockStoreProvider) Columns() store.ColumnStore         { return m.columns }
func (m *mockStoreProvider) Users() store.UserStore             { return m.users }
func (m *mockStoreProvider) Tasks() store.TaskStore             { return m.tasks }
func (m *mockStoreProvider) Comments() store.CommentStore       { return m.comments }
func (m *mockStoreProvider) Stickers() store.StickerStore       { return m.stickers }
func (m *mockStoreProvider) Departments() store.DepartmentStore { return m.departments }
func (m *mockStoreProvider) IssueLinks() store.IssueLinkStore   { return m.issueLinks }

type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return fn(newMockStoreProvider())
}

// txRunnerFor binds a TxRunner to one shared provider so specs can inspect
// what ran inside the transaction.
func txRunnerFor(provider *mockStoreProvider) *mockTxRunner {
	return &mockTxRunner{
		withTxFn: func(ctx context.Context, fn func(stores service.StoreProvider) error) error {
			return fn(provider)
		},
	}
}

type mockSourceAPI struct {
	getTaskFn          func(ctx context.Context, id string) (map[string]any, error)
	getColumnFn        func(ctx context.Context, id string) (map[string]any, error)
	getBoardFn         func(ctx context.Context, id string) (map[string]any, error)
	getProjectFn       func(ctx context.Context, id string) (map[string]any, error)
	listProjectsFn     func(ctx context.Context) ([]map[string]any, error)
	listUsersFn        func(ctx context.Context) ([]map[string]any, error)
	listStickersFn     func(ctx context.Context) ([]map[string]any, error)
	listBoardsFn       func(ctx context.Context, projectID string) ([]map[string]any, error)
	listColumnsFn      func(ctx context.Context, boardID string) ([]map[string]any, error)
	listTasksFn        func(ctx context.Context, limit, offset int, includeDeleted bool) ([]map[string]any, error)
	listChatMessagesFn func(ctx context.Context, chatID string) ([]map[string]any, error)
	listUsersCalls     int
	listStickersCalls  int
}

func (m *mockSourceAPI) GetTask(ctx context.Context, id string) (map[string]any, error) {
	if m.getTaskFn != nil {
		return m.getTaskFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSourceAPI) GetColumn(ctx context.Context, id string) (map[string]any, error) {
	if m.getColumnFn != nil {
		return m.getColumnFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSourceAPI) GetBoard(ctx context.Context, id string) (map[string]any, error) {
	if m.getBoardFn != nil {
		return m.getBoardFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSourceAPI) GetProject(ctx context.Context, id string) (map[string]any, error) {
	if m.getProjectFn != nil {
		return m.getProjectFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSourceAPI) ListProjects(ctx context.Context) ([]map[string]any, error) {
	if m.listProjectsFn != nil {
		return m.listProjectsFn(ctx)
	}
	return nil, nil
}

func (m *mockSourceAPI) ListUsers(ctx context.Context) ([]map[string]any, error) {
	m.listUsersCalls++
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockSourceAPI) ListStickers(ctx context.Context) ([]map[string]any, error) {
	m.listStickersCalls++
	if m.listStickersFn != nil {
		return m.listStickersFn(ctx)
	}
	return nil, nil
}

func (m *mockSourceAPI) ListBoards(ctx context.Context, projectID string) ([]map[string]any, error) {
	if m.listBoardsFn != nil {
		return m.listBoardsFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockSourceAPI) ListColumns(ctx context.Context, boardID string) ([]map[string]any, error) {
	if m.listColumnsFn != nil {
		return m.listColumnsFn(ctx, boardID)
	}
	return nil, nil
}

func (m *mockSourceAPI) ListTasks(ctx context.Context, limit, offset int, includeDeleted bool) ([]map[string]any, error) {
	if m.listTasksFn != nil {
		return m.listTasksFn(ctx, limit, offset, includeDeleted)
	}
	return nil, nil
}

func (m *mockSourceAPI) ListChatMessages(ctx context.Context, chatID string) ([]map[string]any, error) {
	if m.listChatMessagesFn != nil {
		return m.listChatMessagesFn(ctx, chatID)
	}
	return nil, nil
}

type mockQueueProducer struct {
	enqueueFn func(ctx context.Context, msg queue.EventMessage) error
	enqueued  []queue.EventMessage
}

func (m *mockQueueProducer) Enqueue(ctx context.Context, msg queue.EventMessage) error {
	m.enqueued = append(m.enqueued, msg)
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, msg)
	}
	return nil
}

func (m *mockQueueProducer) Close() error {
	return nil
}

type mockResolver struct {
	resolveFn     func(ctx context.Context, cache *service.ResolveCache, kind domain.EntityKind, id string) bool
	resolveCalls  int
	prefetchCalls int
}

func (m *mockResolver) Resolve(ctx context.Context, cache *service.ResolveCache, kind domain.EntityKind, id string) bool {
	m.resolveCalls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, cache, kind, id)
	}
	return false
}

func (m *mockResolver) Prefetch(ctx context.Context, cache *service.ResolveCache) {
	m.prefetchCalls++
}

type mockIssueTracker struct {
	createFn    func(ctx context.Context, req service.IssueRequest) (int64, error)
	updateFn    func(ctx context.Context, iid int64, req service.IssueRequest) error
	createCalls int
	updateCalls int
}

func (m *mockIssueTracker) CreateIssue(ctx context.Context, req service.IssueRequest) (int64, error) {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return 1, nil
}

func (m *mockIssueTracker) UpdateIssue(ctx context.Context, iid int64, req service.IssueRequest) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, iid, req)
	}
	return nil
}

type mockStatsStore struct {
	collectFn func(ctx context.Context) (*model.MirrorStats, error)
}

func (m *mockStatsStore) Collect(ctx context.Context) (*model.MirrorStats, error) {
	if m.collectFn != nil {
		return m.collectFn(ctx)
	}
	return &model.MirrorStats{}, nil
}
