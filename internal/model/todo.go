package model

import "time"

// Todo 待办事项，对应 todos
// (module, completion_event, assigned_to) 在未完成时唯一
type Todo struct {
	ID              uint       `gorm:"primaryKey;autoIncrement"           json:"id"`
	Module          string     `gorm:"type:varchar(32);not null"          json:"module"`
	CompletionEvent string     `gorm:"type:varchar(120);not null"         json:"completion_event"`
	AssignedTo      string     `gorm:"type:varchar(255);not null"         json:"assigned_to"`
	Title           string     `gorm:"type:varchar(200);not null"         json:"title"`
	Description     string     `gorm:"type:text;not null;default:''"      json:"description"`
	Link            string     `gorm:"type:varchar(255);not null"         json:"link"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Completed       bool       `gorm:"not null;default:false"             json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Todo) TableName() string { return "todos" }
