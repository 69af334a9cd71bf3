package model

import "time"

// WorkflowRequest 申请聚合，对应 phd_workflow_requests
// PhD Request 与 PhD Proposal 共用同一形状，以 workflow 列区分
type WorkflowRequest struct {
	ID                      uint    `gorm:"primaryKey;autoIncrement"                        json:"id"`
	Workflow                string  `gorm:"type:varchar(32);not null"                       json:"workflow"` // phd-request | phd-proposal
	Kind                    string  `gorm:"type:varchar(50);not null"                       json:"kind"`
	StudentEmail            string  `gorm:"type:varchar(255);not null"                      json:"student_email"`
	SupervisorEmail         string  `gorm:"type:varchar(255);not null"                      json:"supervisor_email"`
	Status                  string  `gorm:"type:varchar(40);not null"                       json:"status"`
	StatusBeforeEditRequest *string `gorm:"type:varchar(40)"                                json:"status_before_edit_request,omitempty"`
	EditRequestType         *string `gorm:"type:varchar(10)"                                json:"edit_request_type,omitempty"` // edit | delete
	Comments                string  `gorm:"type:text;not null;default:''"                   json:"comments"`
	VersionedModel

	// 关联
	Documents []Document `gorm:"foreignKey:RequestID" json:"documents,omitempty"`
}

// TableName 指定表名
func (WorkflowRequest) TableName() string { return "phd_workflow_requests" }

// Document 证明文件引用，对应 phd_workflow_documents
type Document struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"           json:"id"`
	RequestID       uint      `gorm:"not null;index"                     json:"request_id"`
	FileID          string    `gorm:"type:varchar(64);not null"          json:"file_id"`
	FileName        string    `gorm:"type:varchar(255);not null"         json:"file_name"`
	DocumentType    string    `gorm:"type:varchar(50);not null"          json:"document_type"`
	IsPrivate       bool      `gorm:"not null;default:false"             json:"is_private"`
	UploadedByEmail string    `gorm:"type:varchar(255);not null"         json:"uploaded_by_email"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Document) TableName() string { return "phd_workflow_documents" }

// Review 评审台账，对应 phd_workflow_reviews（只追加，不更新不删除）
type Review struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"           json:"id"`
	RequestID      uint      `gorm:"not null;index"                     json:"request_id"`
	ReviewerEmail  string    `gorm:"type:varchar(255);not null"         json:"reviewer_email"`
	ReviewerRole   string    `gorm:"type:varchar(20);not null"          json:"reviewer_role"`
	Approved       bool      `gorm:"not null"                           json:"approved"`
	Comments       string    `gorm:"type:text;not null;default:''"      json:"comments"`
	StatusAtReview string    `gorm:"type:varchar(40);not null"          json:"status_at_review"`
	MemberPosition *int      `gorm:"type:int"                           json:"member_position,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// 关联
	Reviewer *User `gorm:"foreignKey:ReviewerEmail;references:Email" json:"reviewer,omitempty"`
}

// TableName 指定表名
func (Review) TableName() string { return "phd_workflow_reviews" }

// DrcAssignment 本轮 DRC 成员分配，对应 phd_drc_assignments
type DrcAssignment struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"                 json:"id"`
	RequestID   uint       `gorm:"not null;uniqueIndex:uk_drc_request_member" json:"request_id"`
	MemberEmail string     `gorm:"type:varchar(255);not null;uniqueIndex:uk_drc_request_member" json:"member_email"`
	Position    int        `gorm:"not null"                                 json:"position"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"` // pending | approved | reverted
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"       json:"created_at"`
}

// TableName 指定表名
func (DrcAssignment) TableName() string { return "phd_drc_assignments" }

// DacMember 导师提名的 DAC 成员，对应 phd_dac_members
type DacMember struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"           json:"id"`
	RequestID   uint      `gorm:"not null;index"                     json:"request_id"`
	MemberEmail string    `gorm:"type:varchar(255);not null"         json:"member_email"`
	Position    int       `gorm:"not null"                           json:"position"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (DacMember) TableName() string { return "phd_dac_members" }
