package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/dto"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/service"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/response"
)

// TodoHandler 待办与通知 HTTP 处理器
type TodoHandler struct {
	todoSvc         service.TodoService
	notificationSvc service.NotificationService
}

// NewTodoHandler 创建 TodoHandler
func NewTodoHandler(todoSvc service.TodoService, notificationSvc service.NotificationService) *TodoHandler {
	return &TodoHandler{todoSvc: todoSvc, notificationSvc: notificationSvc}
}

// ListTodos 我的待办
// GET /api/v1/todos
func (h *TodoHandler) ListTodos(c *gin.Context) {
	email, ok := MustGetEmail(c)
	if !ok {
		return
	}

	list, err := h.todoSvc.ListMine(c.Request.Context(), email)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

// Calendar 待办日历订阅
// GET /api/v1/todos/calendar.ics
func (h *TodoHandler) Calendar(c *gin.Context) {
	email, ok := MustGetEmail(c)
	if !ok {
		return
	}

	body, err := h.todoSvc.Calendar(c.Request.Context(), email)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Inline(c, "text/calendar; charset=utf-8", "todos.ics", []byte(body))
}

// ListNotifications 我的通知
// GET /api/v1/notifications?unread_only=true
func (h *TodoHandler) ListNotifications(c *gin.Context) {
	email, ok := MustGetEmail(c)
	if !ok {
		return
	}
	var req dto.ListNotificationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), email, &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// MarkNotificationsRead 标记通知已读
// POST /api/v1/notifications/read
func (h *TodoHandler) MarkNotificationsRead(c *gin.Context) {
	email, ok := MustGetEmail(c)
	if !ok {
		return
	}
	var req dto.MarkNotificationsReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), email, &req); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}
