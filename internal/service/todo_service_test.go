package service

import (
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/dto"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
)

func seedTodos(t *testing.T, store *mockStore) {
	t.Helper()
	repo := newMockRepository(store)
	deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	err := repo.Todo.CreateIgnoreDuplicates(context.Background(), []model.Todo{
		{Module: "phd-request", CompletionEvent: "phd-request:drc-convener-review:7", AssignedTo: convEmail,
			Title: "PhD Request #7: DRC convener review", Link: "https://ims.test/phd-requests/7", Deadline: &deadline},
		{Module: "phd-proposal", CompletionEvent: "phd-proposal:drc-convener-review:3", AssignedTo: convEmail,
			Title: "PhD Proposal #3: DRC convener review"},
		{Module: "phd-request", CompletionEvent: "phd-request:hod-review:7", AssignedTo: hodEmail,
			Title: "PhD Request #7: HOD review", Deadline: &deadline},
	})
	if err != nil {
		t.Fatalf("写入待办失败: %v", err)
	}
}

func TestTodoService_ListMine(t *testing.T) {
	store := newMockStore()
	seedTodos(t, store)
	svc := NewTodoService(newMockRepository(store), zap.NewNop())

	list, err := svc.ListMine(context.Background(), "  CONV@bphc.edu ")
	if err != nil {
		t.Fatalf("ListMine 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 条待办，实际 %d", len(list))
	}
	if list[0].Deadline != "2026-03-10T00:00:00Z" {
		t.Errorf("截止日期格式错误: %s", list[0].Deadline)
	}
	if list[1].Deadline != "" {
		t.Errorf("无截止日期的待办不应输出 deadline，实际 %s", list[1].Deadline)
	}
}

func TestTodoService_Calendar(t *testing.T) {
	store := newMockStore()
	seedTodos(t, store)
	svc := NewTodoService(newMockRepository(store), zap.NewNop())

	out, err := svc.Calendar(context.Background(), convEmail)
	if err != nil {
		t.Fatalf("Calendar 应成功: %v", err)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("输出不是有效的 iCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("只有带截止日期的待办进入日历，期望 1 个事件，实际 %d", len(events))
	}
	ev := events[0]
	if want := "phd-request:drc-convener-review:7/" + convEmail + "@ims"; ev.Id() != want {
		t.Errorf("期望 UID %s，实际 %s", want, ev.Id())
	}
	if p := ev.GetProperty(ics.ComponentPropertySummary); p == nil || p.Value != "PhD Request #7: DRC convener review" {
		t.Errorf("SUMMARY 错误: %+v", p)
	}
	if p := ev.GetProperty(ics.ComponentPropertyUrl); p == nil || p.Value != "https://ims.test/phd-requests/7" {
		t.Errorf("URL 错误: %+v", p)
	}
}

func TestTodoService_Calendar_Empty(t *testing.T) {
	svc := NewTodoService(newMockRepository(newMockStore()), zap.NewNop())

	out, err := svc.Calendar(context.Background(), outsiderEmail)
	if err != nil {
		t.Fatalf("Calendar 应成功: %v", err)
	}
	if !strings.Contains(out, "BEGIN:VCALENDAR") || strings.Contains(out, "BEGIN:VEVENT") {
		t.Errorf("无待办时应输出空日历，实际:\n%s", out)
	}
}

// ── NotificationService ──

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	store := newMockStore()
	repo := newMockRepository(store)
	ctx := context.Background()
	_ = repo.Notification.BatchCreate(ctx, []model.Notification{
		{UserEmail: supEmail, Module: "phd-request", Kind: "reverted", Title: "PhD Request #1 reverted", Content: "fix"},
		{UserEmail: supEmail, Module: "phd-request", Kind: "completed", Title: "PhD Request #2 completed"},
		{UserEmail: stuEmail, Module: "phd-request", Kind: "completed", Title: "PhD Request #2 completed"},
	})
	svc := NewNotificationService(repo, zap.NewNop())

	list, total, err := svc.List(ctx, supEmail, &dto.ListNotificationRequest{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || list[0].Kind != "completed" {
		t.Fatalf("期望 2 条且最新在前，实际 %d / %+v", total, list)
	}

	// 学生的通知不会被导师标记
	stuList, _, _ := svc.List(ctx, stuEmail, &dto.ListNotificationRequest{})
	if err := svc.MarkRead(ctx, supEmail, &dto.MarkNotificationsReadRequest{IDs: []uint{list[1].ID, stuList[0].ID}}); err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}

	unread, total, _ := svc.List(ctx, supEmail, &dto.ListNotificationRequest{UnreadOnly: true})
	if total != 1 || unread[0].Kind != "completed" {
		t.Errorf("期望剩 1 条未读，实际 %+v", unread)
	}
	stuUnread, _, _ := svc.List(ctx, stuEmail, &dto.ListNotificationRequest{UnreadOnly: true})
	if len(stuUnread) != 1 {
		t.Error("其他用户的通知不应被标记已读")
	}
}
