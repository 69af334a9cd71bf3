package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/dto"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
)

// TodoService 待办业务接口
//
// 待办由 EffectDispatcher 在转移提交后创建与完成，这里只提供查询。
// 截止日期仅作提示，不会触发任何自动转移。
type TodoService interface {
	ListMine(ctx context.Context, email string) ([]dto.TodoResponse, error)
	// Calendar 以 iCalendar 格式导出有截止日期的未完成待办，供日历客户端订阅
	Calendar(ctx context.Context, email string) (string, error)
}

type todoService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewTodoService 创建 TodoService 实例
func NewTodoService(repo *repository.Repository, logger *zap.Logger) TodoService {
	return &todoService{repo: repo, logger: logger, now: time.Now}
}

func (s *todoService) ListMine(ctx context.Context, email string) ([]dto.TodoResponse, error) {
	todos, err := s.repo.Todo.ListPending(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.logger.Error("查询待办失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	list := make([]dto.TodoResponse, 0, len(todos))
	for i := range todos {
		list = append(list, toTodoResponse(&todos[i]))
	}
	return list, nil
}

// ═══════════════════════════════════════════════════════════
// Calendar 待办日历
// ═══════════════════════════════════════════════════════════
//
// 每个有截止日期的待办生成一个全天 VEVENT：
//   - UID 使用 completion_event + 接收人，重复导出时保持稳定
//   - SUMMARY 为待办标题，URL 指向申请详情

func (s *todoService) Calendar(ctx context.Context, email string) (string, error) {
	todos, err := s.repo.Todo.ListPending(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.logger.Error("查询待办失败", zap.String("email", email), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//BPHC IMS//PhD Workflow Todos//EN")
	cal.SetName("IMS Todos")

	stamp := s.now().UTC()
	for _, t := range todos {
		if t.Deadline == nil {
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("%s/%s@ims", t.CompletionEvent, t.AssignedTo))
		ev.SetDtStampTime(stamp)
		ev.SetCreatedTime(t.CreatedAt)
		ev.SetAllDayStartAt(*t.Deadline)
		ev.SetAllDayEndAt(t.Deadline.AddDate(0, 0, 1))
		ev.SetSummary(t.Title)
		if t.Description != "" {
			ev.SetDescription(t.Description)
		}
		if t.Link != "" {
			ev.SetURL(t.Link)
		}
	}
	return cal.Serialize(), nil
}

func toTodoResponse(t *model.Todo) dto.TodoResponse {
	resp := dto.TodoResponse{
		ID:              t.ID,
		Module:          t.Module,
		CompletionEvent: t.CompletionEvent,
		Title:           t.Title,
		Description:     t.Description,
		Link:            t.Link,
		CreatedAt:       t.CreatedAt.Format(timeLayout),
	}
	if t.Deadline != nil {
		resp.Deadline = t.Deadline.Format(timeLayout)
	}
	return resp
}
