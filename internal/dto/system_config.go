package dto

// ── 系统配置模块 DTO ──

// UpdateSystemConfigRequest 更新系统配置请求
type UpdateSystemConfigRequest struct {
	DirectFlow       *bool `json:"direct_flow"`
	TodoDeadlineDays *int  `json:"todo_deadline_days" binding:"omitempty,min=1,max=90"`
}

// SystemConfigResponse 系统配置响应
type SystemConfigResponse struct {
	DirectFlow       bool   `json:"direct_flow"`
	TodoDeadlineDays int    `json:"todo_deadline_days"`
	UpdatedAt        string `json:"updated_at"`
}
