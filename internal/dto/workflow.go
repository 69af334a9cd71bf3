package dto

// ── 审批流程模块 DTO ──

// DocumentInput 上传后的文件引用
type DocumentInput struct {
	FileID       string `json:"file_id"       binding:"required,max=64"`
	FileName     string `json:"file_name"     binding:"required,max=255"`
	DocumentType string `json:"document_type" binding:"required,max=50"`
	IsPrivate    bool   `json:"is_private"`
}

// CreateWorkflowRequest 创建申请
// request 由导师发起（填写 student_email）；proposal 由学生发起（填写 supervisor_email）
type CreateWorkflowRequest struct {
	Kind            string          `json:"kind"             binding:"required"`
	StudentEmail    string          `json:"student_email"    binding:"omitempty,email"`
	SupervisorEmail string          `json:"supervisor_email" binding:"omitempty,email"`
	Comments        string          `json:"comments"         binding:"max=5000"`
	Documents       []DocumentInput `json:"documents"        binding:"omitempty,dive"`
	Submit          *bool           `json:"submit"`
}

// SubmitRequest 提交 / 重新提交
type SubmitRequest struct {
	Comments  string          `json:"comments"  binding:"max=5000"`
	Documents []DocumentInput `json:"documents" binding:"omitempty,dive"`
}

// SupervisorReviewRequest 导师审核（proposal）
type SupervisorReviewRequest struct {
	Approved   *bool    `json:"approved"    binding:"required"`
	Comments   string   `json:"comments"    binding:"max=5000"`
	DacMembers []string `json:"dac_members" binding:"omitempty,dive,email"`
}

// DrcConvenerReviewRequest DRC 召集人审核
// action: approve | revert | reject | forward_to_drc | forward_to_hod
type DrcConvenerReviewRequest struct {
	Action             string   `json:"action"               binding:"required,oneof=approve revert reject forward_to_drc forward_to_hod"`
	Comments           string   `json:"comments"             binding:"max=5000"`
	AssignedDrcMembers []string `json:"assigned_drc_members" binding:"omitempty,dive,email"`
}

// DrcMemberReviewRequest DRC 成员审核
type DrcMemberReviewRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comments string `json:"comments" binding:"max=5000"`
}

// HodReviewRequest HOD 审核
type HodReviewRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comments string `json:"comments" binding:"max=5000"`
}

// EditRequestRequest 发起修改 / 删除请求
type EditRequestRequest struct {
	Type     string `json:"type"     binding:"omitempty,oneof=edit delete"`
	Comments string `json:"comments" binding:"max=5000"`
}

// ResolveEditRequest 处理修改请求
type ResolveEditRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comments string `json:"comments" binding:"max=5000"`
}

// ListWorkflowRequest 列表查询
// scope: mine（我是学生或导师）| drc-member（我被分配过）| pending（等待我以召集人 / HOD 身份处理）
type ListWorkflowRequest struct {
	Scope string `form:"scope" binding:"omitempty,oneof=mine drc-member pending"`
	PaginationRequest
}

// DocumentResponse 文件引用
type DocumentResponse struct {
	ID              uint   `json:"id"`
	FileID          string `json:"file_id"`
	FileName        string `json:"file_name"`
	DocumentType    string `json:"document_type"`
	IsPrivate       bool   `json:"is_private"`
	UploadedByEmail string `json:"uploaded_by_email"`
	CreatedAt       string `json:"created_at"`
}

// AssignmentResponse DRC 成员分配
type AssignmentResponse struct {
	Label       string `json:"label"`
	MemberEmail string `json:"member_email,omitempty"`
	Status      string `json:"status"`
}

// LedgerLineResponse 台账展示行
type LedgerLineResponse struct {
	ID             uint   `json:"id"`
	Label          string `json:"label"`
	ReviewerEmail  string `json:"reviewer_email,omitempty"`
	ReviewerName   string `json:"reviewer_name,omitempty"`
	Role           string `json:"role"`
	Approved       bool   `json:"approved"`
	Comments       string `json:"comments"`
	StatusAtReview string `json:"status_at_review"`
	CreatedAt      string `json:"created_at"`
}

// WorkflowSummaryResponse 列表项
type WorkflowSummaryResponse struct {
	ID              uint   `json:"id"`
	Workflow        string `json:"workflow"`
	Kind            string `json:"kind"`
	StudentEmail    string `json:"student_email"`
	SupervisorEmail string `json:"supervisor_email"`
	Status          string `json:"status"`
	UpdatedAt       string `json:"updated_at"`
}

// WorkflowDetailResponse 详情
type WorkflowDetailResponse struct {
	WorkflowSummaryResponse
	StatusBeforeEditRequest *string              `json:"status_before_edit_request,omitempty"`
	EditRequestType         *string              `json:"edit_request_type,omitempty"`
	Comments                string               `json:"comments"`
	CreatedAt               string               `json:"created_at"`
	Documents               []DocumentResponse   `json:"documents"`
	DrcAssignments          []AssignmentResponse `json:"drc_assignments"`
	DacMembers              []string             `json:"dac_members,omitempty"`
	Ledger                  []LedgerLineResponse `json:"ledger"`
	AvailableActions        []string             `json:"available_actions"`
}

// TransitionResponse 动作结果
type TransitionResponse struct {
	ID      uint   `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Pending int    `json:"pending_drc_members,omitempty"`
}
