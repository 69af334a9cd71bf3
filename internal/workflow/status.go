package workflow

// Status 申请所处流程阶段，聚合上唯一的状态来源
type Status string

const (
	StatusDraft                 Status = "draft"
	StatusStudentReview         Status = "student_review"
	StatusSupervisorReview      Status = "supervisor_review"
	StatusDrcConvenerReview     Status = "drc_convener_review"
	StatusDrcMemberReview       Status = "drc_member_review"
	StatusDrcApproved           Status = "drc_approved"
	StatusHodReview             Status = "hod_review"
	StatusRevertedBySupervisor  Status = "reverted_by_supervisor"
	StatusRevertedByDrcConvener Status = "reverted_by_drc_convener"
	StatusRevertedByHod         Status = "reverted_by_hod"
	StatusPendingEditApproval   Status = "pending_edit_approval"
	StatusCompleted             Status = "completed"
	StatusRejected              Status = "rejected"
	StatusDeleted               Status = "deleted"
)

// AllStatuses 全部状态（用于穷举校验与迁移约束）
var AllStatuses = []Status{
	StatusDraft,
	StatusStudentReview,
	StatusSupervisorReview,
	StatusDrcConvenerReview,
	StatusDrcMemberReview,
	StatusDrcApproved,
	StatusHodReview,
	StatusRevertedBySupervisor,
	StatusRevertedByDrcConvener,
	StatusRevertedByHod,
	StatusPendingEditApproval,
	StatusCompleted,
	StatusRejected,
	StatusDeleted,
}

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusDeleted
}

// IsReverted 是否为退回状态
func (s Status) IsReverted() bool {
	switch s {
	case StatusRevertedBySupervisor, StatusRevertedByDrcConvener, StatusRevertedByHod:
		return true
	}
	return false
}

// IsInFlight 是否处于可申请修改的评审阶段
func (s Status) IsInFlight() bool {
	switch s {
	case StatusDrcConvenerReview, StatusDrcMemberReview, StatusDrcApproved, StatusHodReview:
		return true
	}
	return false
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Role 流程中的参与角色
type Role string

const (
	RoleStudent     Role = "student"
	RoleSupervisor  Role = "supervisor"
	RoleDrcMember   Role = "drc_member"
	RoleDrcConvener Role = "drc_convener"
	RoleHod         Role = "hod"
)

// Label 角色展示名
func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleSupervisor:
		return "Supervisor"
	case RoleDrcMember:
		return "DRC Member"
	case RoleDrcConvener:
		return "DRC Convener"
	case RoleHod:
		return "HOD"
	}
	return string(r)
}

// Action 流程动作
type Action string

const (
	ActionSubmit        Action = "submit"
	ActionApprove       Action = "approve"
	ActionRevert        Action = "revert"
	ActionReject        Action = "reject"
	ActionForwardToDrc  Action = "forward_to_drc"
	ActionForwardToHod  Action = "forward_to_hod"
	ActionMemberReview  Action = "drc_member_review"
	ActionRequestEdit   Action = "request_edit"
	ActionRequestDelete Action = "request_delete"
	ActionApproveEdit   Action = "approve_edit"
	ActionRejectEdit    Action = "reject_edit"
)

// AllActions 全部动作
var AllActions = []Action{
	ActionSubmit,
	ActionApprove,
	ActionRevert,
	ActionReject,
	ActionForwardToDrc,
	ActionForwardToHod,
	ActionMemberReview,
	ActionRequestEdit,
	ActionRequestDelete,
	ActionApproveEdit,
	ActionRejectEdit,
}

// AssignmentStatus DRC 成员本轮评审状态
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentApproved AssignmentStatus = "approved"
	AssignmentReverted AssignmentStatus = "reverted"
)

// EditRequestType 修改请求类型
type EditRequestType string

const (
	EditRequestNone   EditRequestType = ""
	EditRequestEdit   EditRequestType = "edit"
	EditRequestDelete EditRequestType = "delete"
)
