package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	pkgerrors "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/errors"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/events"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/mailer"
)

// ═══════════════════════════════════════════════════════════
// 内存存储：所有 mock repo 共享同一份状态
// ═══════════════════════════════════════════════════════════

type mockState struct {
	requests      map[uint]model.WorkflowRequest
	documents     []model.Document
	reviews       []model.Review
	assignments   map[uint][]model.DrcAssignment
	dac           map[uint][]model.DacMember
	todos         []model.Todo
	notifications []model.Notification
	users         map[string]model.User
	perms         map[string]map[string]bool
	sysCfg        *model.SystemConfig
	nextID        uint
}

func (s *mockState) clone() mockState {
	c := *s
	c.requests = make(map[uint]model.WorkflowRequest, len(s.requests))
	for k, v := range s.requests {
		c.requests[k] = v
	}
	c.documents = append([]model.Document(nil), s.documents...)
	c.reviews = append([]model.Review(nil), s.reviews...)
	c.assignments = make(map[uint][]model.DrcAssignment, len(s.assignments))
	for k, v := range s.assignments {
		c.assignments[k] = append([]model.DrcAssignment(nil), v...)
	}
	c.dac = make(map[uint][]model.DacMember, len(s.dac))
	for k, v := range s.dac {
		c.dac[k] = append([]model.DacMember(nil), v...)
	}
	c.todos = append([]model.Todo(nil), s.todos...)
	c.notifications = append([]model.Notification(nil), s.notifications...)
	c.users = make(map[string]model.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.perms = make(map[string]map[string]bool, len(s.perms))
	for k, v := range s.perms {
		inner := make(map[string]bool, len(v))
		for p := range v {
			inner[p] = true
		}
		c.perms[k] = inner
	}
	if s.sysCfg != nil {
		cfg := *s.sysCfg
		c.sysCfg = &cfg
	}
	return c
}

type mockStore struct {
	mu sync.Mutex
	st mockState

	// 故障注入
	todoCreateErr   error
	notificationErr error
	reviewErr       error
}

func newMockStore() *mockStore {
	return &mockStore{st: mockState{
		requests:    make(map[uint]model.WorkflowRequest),
		assignments: make(map[uint][]model.DrcAssignment),
		dac:         make(map[uint][]model.DacMember),
		users:       make(map[string]model.User),
		perms:       make(map[string]map[string]bool),
		nextID:      1,
	}}
}

func (s *mockStore) id() uint {
	id := s.st.nextID
	s.st.nextID++
	return id
}

// newMockRepository 基于 store 组装 Repository，事务由互斥锁串行化，出错时回滚
func newMockRepository(store *mockStore) *repository.Repository {
	repo := &repository.Repository{
		Request:       &mockRequestRepo{s: store},
		Document:      &mockDocumentRepo{s: store},
		Review:        &mockReviewRepo{s: store},
		DrcAssignment: &mockDrcAssignmentRepo{s: store},
		DacMember:     &mockDacMemberRepo{s: store},
		Todo:          &mockTodoRepo{s: store},
		Notification:  &mockNotificationRepo{s: store},
		User:          &mockUserRepo{s: store},
		SystemConfig:  &mockSystemConfigRepo{s: store},
	}
	return repo.WithTxRunner(&mockTxRunner{store: store, repo: repo})
}

// ── Mock TxRunner ──

type mockTxRunner struct {
	txMu  sync.Mutex
	store *mockStore
	repo  *repository.Repository
}

func (r *mockTxRunner) Run(_ context.Context, fn func(tx *repository.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.store.mu.Lock()
	saved := r.store.st.clone()
	r.store.mu.Unlock()

	if err := fn(r.repo); err != nil {
		r.store.mu.Lock()
		// 待办与通知只在提交后写入，不参与回滚
		saved.todos, saved.notifications = r.store.st.todos, r.store.st.notifications
		saved.nextID = r.store.st.nextID
		r.store.st = saved
		r.store.mu.Unlock()
		return err
	}
	return nil
}

// ── Mock WorkflowRequestRepository ──

type mockRequestRepo struct{ s *mockStore }

func (m *mockRequestRepo) Create(_ context.Context, req *model.WorkflowRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	req.ID = m.s.id()
	now := time.Now()
	req.CreatedAt, req.UpdatedAt = now, now
	row := *req
	row.Documents = nil
	m.s.st.requests[req.ID] = row
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, workflow string, id uint) (*model.WorkflowRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row, ok := m.s.st.requests[id]
	if !ok || row.Workflow != workflow {
		return nil, gorm.ErrRecordNotFound
	}
	for _, d := range m.s.st.documents {
		if d.RequestID == id {
			row.Documents = append(row.Documents, d)
		}
	}
	return &row, nil
}

func (m *mockRequestRepo) GetForUpdate(_ context.Context, workflow string, id uint) (*model.WorkflowRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row, ok := m.s.st.requests[id]
	if !ok || row.Workflow != workflow {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (m *mockRequestRepo) UpdateState(_ context.Context, req *model.WorkflowRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row, ok := m.s.st.requests[req.ID]
	if !ok || row.Version != req.Version {
		return pkgerrors.ErrOptimisticLock
	}
	row.Status = req.Status
	row.StatusBeforeEditRequest = req.StatusBeforeEditRequest
	row.EditRequestType = req.EditRequestType
	row.Comments = req.Comments
	row.UpdatedBy = req.UpdatedBy
	row.UpdatedAt = time.Now()
	row.Version++
	m.s.st.requests[req.ID] = row
	req.Version = row.Version
	return nil
}

func (m *mockRequestRepo) list(workflow string, offset, limit int, keep func(model.WorkflowRequest) bool) ([]model.WorkflowRequest, int64) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.WorkflowRequest
	for _, r := range m.s.st.requests {
		if r.Workflow == workflow && keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total
}

func (m *mockRequestRepo) ListByParty(_ context.Context, workflow, email string, offset, limit int) ([]model.WorkflowRequest, int64, error) {
	rows, total := m.list(workflow, offset, limit, func(r model.WorkflowRequest) bool {
		return r.StudentEmail == email || r.SupervisorEmail == email
	})
	return rows, total, nil
}

func (m *mockRequestRepo) ListByStatus(_ context.Context, workflow string, statuses []string, offset, limit int) ([]model.WorkflowRequest, int64, error) {
	rows, total := m.list(workflow, offset, limit, func(r model.WorkflowRequest) bool {
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	})
	return rows, total, nil
}

func (m *mockRequestRepo) ListByDrcMember(_ context.Context, workflow, email string, offset, limit int) ([]model.WorkflowRequest, int64, error) {
	m.s.mu.Lock()
	ids := make(map[uint]bool)
	for id, rows := range m.s.st.assignments {
		for _, a := range rows {
			if a.MemberEmail == email {
				ids[id] = true
			}
		}
	}
	m.s.mu.Unlock()
	rows, total := m.list(workflow, offset, limit, func(r model.WorkflowRequest) bool { return ids[r.ID] })
	return rows, total, nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct{ s *mockStore }

func (m *mockDocumentRepo) ListByRequest(_ context.Context, requestID uint) ([]model.Document, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Document
	for _, d := range m.s.st.documents {
		if d.RequestID == requestID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) BatchCreate(_ context.Context, docs []model.Document) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, d := range docs {
		d.ID = m.s.id()
		d.CreatedAt = time.Now()
		m.s.st.documents = append(m.s.st.documents, d)
	}
	return nil
}

func (m *mockDocumentRepo) DeleteByRequest(_ context.Context, requestID uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	kept := m.s.st.documents[:0:0]
	for _, d := range m.s.st.documents {
		if d.RequestID != requestID {
			kept = append(kept, d)
		}
	}
	m.s.st.documents = kept
	return nil
}

// ── Mock ReviewRepository ──

type mockReviewRepo struct{ s *mockStore }

func (m *mockReviewRepo) Create(_ context.Context, review *model.Review) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.reviewErr != nil {
		return m.s.reviewErr
	}
	review.ID = m.s.id()
	review.CreatedAt = time.Now()
	m.s.st.reviews = append(m.s.st.reviews, *review)
	return nil
}

func (m *mockReviewRepo) ListByRequest(_ context.Context, requestID uint) ([]model.Review, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Review
	for _, r := range m.s.st.reviews {
		if r.RequestID != requestID {
			continue
		}
		if u, ok := m.s.st.users[r.ReviewerEmail]; ok {
			u := u
			r.Reviewer = &u
		}
		out = append(out, r)
	}
	return out, nil
}

// ── Mock DrcAssignmentRepository ──

type mockDrcAssignmentRepo struct{ s *mockStore }

func (m *mockDrcAssignmentRepo) ListByRequest(_ context.Context, requestID uint) ([]model.DrcAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]model.DrcAssignment(nil), m.s.st.assignments[requestID]...), nil
}

func (m *mockDrcAssignmentRepo) ListForUpdate(ctx context.Context, requestID uint) ([]model.DrcAssignment, error) {
	return m.ListByRequest(ctx, requestID)
}

func (m *mockDrcAssignmentRepo) Replace(_ context.Context, requestID uint, members []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rows := make([]model.DrcAssignment, 0, len(members))
	for i, e := range members {
		rows = append(rows, model.DrcAssignment{
			ID:          m.s.id(),
			RequestID:   requestID,
			MemberEmail: e,
			Position:    i + 1,
			Status:      "pending",
			CreatedAt:   time.Now(),
		})
	}
	m.s.st.assignments[requestID] = rows
	return nil
}

func (m *mockDrcAssignmentRepo) Decide(_ context.Context, requestID uint, member, status string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rows := m.s.st.assignments[requestID]
	for i := range rows {
		if rows[i].MemberEmail == member && rows[i].Status == "pending" {
			now := time.Now()
			rows[i].Status = status
			rows[i].DecidedAt = &now
			return nil
		}
	}
	return pkgerrors.Conflict("成员 %s 已提交过本轮评审", member)
}

func (m *mockDrcAssignmentRepo) CountPending(_ context.Context, requestID uint) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, a := range m.s.st.assignments[requestID] {
		if a.Status == "pending" {
			n++
		}
	}
	return n, nil
}

// ── Mock DacMemberRepository ──

type mockDacMemberRepo struct{ s *mockStore }

func (m *mockDacMemberRepo) ListByRequest(_ context.Context, requestID uint) ([]model.DacMember, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]model.DacMember(nil), m.s.st.dac[requestID]...), nil
}

func (m *mockDacMemberRepo) Replace(_ context.Context, requestID uint, members []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rows := make([]model.DacMember, 0, len(members))
	for i, e := range members {
		rows = append(rows, model.DacMember{ID: m.s.id(), RequestID: requestID, MemberEmail: e, Position: i + 1})
	}
	m.s.st.dac[requestID] = rows
	return nil
}

// ── Mock TodoRepository ──

type mockTodoRepo struct{ s *mockStore }

func (m *mockTodoRepo) CreateIgnoreDuplicates(_ context.Context, todos []model.Todo) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.todoCreateErr != nil {
		return m.s.todoCreateErr
	}
	for _, t := range todos {
		dup := false
		for _, e := range m.s.st.todos {
			if !e.Completed && e.Module == t.Module && e.CompletionEvent == t.CompletionEvent && e.AssignedTo == t.AssignedTo {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		t.ID = m.s.id()
		t.CreatedAt = time.Now()
		m.s.st.todos = append(m.s.st.todos, t)
	}
	return nil
}

func (m *mockTodoRepo) Complete(_ context.Context, module, completionEvent, assignee string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for i := range m.s.st.todos {
		t := &m.s.st.todos[i]
		if t.Completed || t.Module != module || t.CompletionEvent != completionEvent {
			continue
		}
		if assignee != "" && t.AssignedTo != assignee {
			continue
		}
		now := time.Now()
		t.Completed = true
		t.CompletedAt = &now
		n++
	}
	return n, nil
}

func (m *mockTodoRepo) ListPending(_ context.Context, assignee string) ([]model.Todo, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Todo
	for _, t := range m.s.st.todos {
		if !t.Completed && t.AssignedTo == assignee {
			out = append(out, t)
		}
	}
	return out, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *mockStore }

func (m *mockNotificationRepo) BatchCreate(_ context.Context, items []model.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.notificationErr != nil {
		return m.s.notificationErr
	}
	for _, n := range items {
		n.ID = m.s.id()
		n.CreatedAt = time.Now()
		m.s.st.notifications = append(m.s.st.notifications, n)
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, email string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Notification
	for i := len(m.s.st.notifications) - 1; i >= 0; i-- {
		n := m.s.st.notifications[i]
		if n.UserEmail != email || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, email string, ids []uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range m.s.st.notifications {
		n := &m.s.st.notifications[i]
		if n.UserEmail == email && want[n.ID] {
			n.IsRead = true
		}
	}
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *mockStore }

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.st.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for p := range m.s.st.perms[email] {
		u.Permissions = append(u.Permissions, model.UserPermission{UserEmail: email, Permission: p})
	}
	return &u, nil
}

func (m *mockUserRepo) ListByEmails(_ context.Context, emails []string) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.User
	for _, e := range emails {
		if u, ok := m.s.st.users[e]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) ListPermissions(_ context.Context, email string) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []string
	for p := range m.s.st.perms[email] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockUserRepo) ListEmailsWithPermission(_ context.Context, permission string) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []string
	for email, ps := range m.s.st.perms {
		if ps[permission] {
			out = append(out, email)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u := *user
	u.Permissions = nil
	m.s.st.users[user.Email] = u
	return nil
}

func (m *mockUserRepo) GrantPermission(_ context.Context, email, permission string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.st.perms[email] == nil {
		m.s.st.perms[email] = make(map[string]bool)
	}
	m.s.st.perms[email][permission] = true
	return nil
}

func (m *mockUserRepo) RevokePermission(_ context.Context, email, permission string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.st.perms[email], permission)
	return nil
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct{ s *mockStore }

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.st.sysCfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cfg := *m.s.st.sysCfg
	return &cfg, nil
}

func (m *mockSystemConfigRepo) Update(_ context.Context, cfg *model.SystemConfig) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := *cfg
	c.UpdatedAt = time.Now()
	m.s.st.sysCfg = &c
	return nil
}

// ═══════════════════════════════════════════════════════════
// 外部协作方 Mock
// ═══════════════════════════════════════════════════════════

// ── Mock Mailer ──

type mockMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

// ── Mock Publisher ──

type mockPublisher struct {
	mu     sync.Mutex
	events []events.Transition
	err    error
}

func (m *mockPublisher) PublishTransition(_ context.Context, ev events.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) published() []events.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Transition(nil), m.events...)
}

// ── Mock FileStore ──

type mockFileStore struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (m *mockFileStore) Delete(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, fileID)
	return nil
}

func (m *mockFileStore) removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// ── Mock PermissionCache ──

type mockPermissionCache struct {
	mu          sync.Mutex
	entries     map[string][]string
	hits        int
	invalidated []string
	getErr      error
}

func newMockPermissionCache() *mockPermissionCache {
	return &mockPermissionCache{entries: make(map[string][]string)}
}

func (m *mockPermissionCache) GetPermissionUsers(_ context.Context, permission string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	emails, ok := m.entries[permission]
	if ok {
		m.hits++
	}
	return emails, ok, nil
}

func (m *mockPermissionCache) SetPermissionUsers(_ context.Context, permission string, emails []string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[permission] = emails
	return nil
}

func (m *mockPermissionCache) InvalidatePermission(_ context.Context, permission string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, permission)
	m.invalidated = append(m.invalidated, permission)
	return nil
}
