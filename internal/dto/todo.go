package dto

// ── 待办与通知模块 DTO ──

// TodoResponse 待办项
type TodoResponse struct {
	ID              uint   `json:"id"`
	Module          string `json:"module"`
	CompletionEvent string `json:"completion_event"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Link            string `json:"link"`
	Deadline        string `json:"deadline,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// ListNotificationRequest 通知列表查询
type ListNotificationRequest struct {
	UnreadOnly bool `form:"unread_only"`
	PaginationRequest
}

// NotificationResponse 通知
type NotificationResponse struct {
	ID        uint   `json:"id"`
	Module    string `json:"module"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Link      string `json:"link"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// MarkNotificationsReadRequest 标记已读
type MarkNotificationsReadRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1,max=200"`
}
