package model

// SystemConfig 系统配置表，对应 system_config（单行强类型）
type SystemConfig struct {
	Singleton        bool `gorm:"primaryKey;default:true" json:"-"`
	DirectFlow       bool `gorm:"not null;default:false"  json:"direct_flow"`
	TodoDeadlineDays int  `gorm:"not null;default:7"      json:"todo_deadline_days"`
	BaseModel
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }

// [自证通过] internal/model/system_config.go
