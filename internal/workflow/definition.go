package workflow

import (
	"fmt"
	"sort"
)

// Name 流程名称，同时作为待办 module 与权限前缀
type Name string

const (
	PhdRequest  Name = "phd-request"
	PhdProposal Name = "phd-proposal"
)

// Kind 申请类别，创建后不可变
type Kind string

const (
	KindPreSubmission         Kind = "pre_submission"
	KindThesisSubmission      Kind = "thesis_submission"
	KindFinalThesisSubmission Kind = "final_thesis_submission"
	KindCourseWork            Kind = "course_work"
	KindSupervisorChange      Kind = "supervisor_change"
	KindResearchProposal      Kind = "research_proposal"
	KindRevisedProposal       Kind = "revised_proposal"
)

// StageKey 待办完成事件中的阶段段
type StageKey string

const (
	StageStudentReview     StageKey = "student-review"
	StageSupervisorReview  StageKey = "supervisor-review"
	StageDrcConvenerReview StageKey = "drc-convener-review"
	StageDrcMemberReview   StageKey = "drc-member-review"
	StageDrcForwardHod     StageKey = "drc-forward-hod"
	StageHodReview         StageKey = "hod-review"
	StageResubmit          StageKey = "resubmit"
	StageEditApproval      StageKey = "edit-approval"
)

// CompletionEvent 生成待办完成事件，如 phd-request:drc-convener-review:42
func CompletionEvent(name Name, stage StageKey, id uint) string {
	return fmt.Sprintf("%s:%s:%d", name, stage, id)
}

// Edge 状态转移边
type Edge struct {
	Role Role
	To   Status

	// DirectTo 直通模式下替代 To 的目标
	DirectTo Status
	// KindTo 按申请类别覆盖目标
	KindTo map[Kind]Status

	RequireComments bool
	// Quorum DRC 成员评审：全部成员决定后才离开当前阶段
	Quorum bool
	// InitialOnly 仅在从未分配过 DRC 成员时可用
	InitialOnly bool
	// AssignDrc 替换本轮 DRC 成员（先删后插）
	AssignDrc bool
	// NominateDac 导师审核通过时提名 DAC 成员
	NominateDac bool
	// Submission 提交/重新提交：可替换文档，清空 comments
	Submission bool
	// OpenEdit 发起修改请求，记录快照
	OpenEdit EditRequestType
	// ResolveEdit 处理修改请求；RestoreSnapshot 时回到快照状态
	ResolveEdit     bool
	RestoreSnapshot bool
	// Silent 不发送邮件，仅恢复待办
	Silent bool
}

type edgeKey struct {
	from   Status
	action Action
}

// Definition 一个具体流程（PhD Request / PhD Proposal）的完整转移表
type Definition struct {
	Name      Name
	Submitter Role
	Kinds     []Kind

	edges map[edgeKey]Edge
	// rank 阶段在规范管线中的位置，用于区分"尚未就绪"与"已处理"
	rank map[Status]int
}

// Edge 查询转移边
func (d *Definition) Edge(from Status, action Action) (Edge, bool) {
	e, ok := d.edges[edgeKey{from: from, action: action}]
	return e, ok
}

// Sources 返回允许某动作的全部源状态（有序）；role 为空时不按角色过滤
func (d *Definition) Sources(action Action, role Role) []Status {
	var out []Status
	for k, e := range d.edges {
		if k.action == action && (role == "" || e.Role == role) {
			out = append(out, k.from)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if d.rank[out[i]] != d.rank[out[j]] {
			return d.rank[out[i]] < d.rank[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Actions 返回某状态下可执行的动作
func (d *Definition) Actions(from Status) []Action {
	var out []Action
	for _, a := range AllActions {
		if _, ok := d.edges[edgeKey{from: from, action: a}]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Rank 阶段位置
func (d *Definition) Rank(s Status) int { return d.rank[s] }

// SupportsKind 是否支持该申请类别
func (d *Definition) SupportsKind(k Kind) bool {
	for _, kk := range d.Kinds {
		if kk == k {
			return true
		}
	}
	return false
}

// Permission 角色对应的权限字符串，如 phd-request:drc-convener
func (d *Definition) Permission(r Role) string {
	switch r {
	case RoleDrcConvener:
		return string(d.Name) + ":drc-convener"
	case RoleHod:
		return string(d.Name) + ":hod"
	case RoleDrcMember:
		return string(d.Name) + ":drc-member"
	}
	return ""
}

// SubmitterOf 返回某状态下负责提交的一方
// 终稿类申请在 student_review 阶段由学生提交
func (d *Definition) SubmitterOf(status Status) Role {
	if status == StatusStudentReview {
		return RoleStudent
	}
	return d.Submitter
}

// FirstReviewStage 提交后进入的第一个评审阶段
func (d *Definition) FirstReviewStage() Status {
	if d.Name == PhdProposal {
		return StatusSupervisorReview
	}
	return StatusDrcConvenerReview
}

// Graph 以 "from --action/role--> to" 形式列出全部转移，按阶段排序
func (d *Definition) Graph() []string {
	keys := make([]edgeKey, 0, len(d.edges))
	for k := range d.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if d.rank[keys[i].from] != d.rank[keys[j].from] {
			return d.rank[keys[i].from] < d.rank[keys[j].from]
		}
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].action < keys[j].action
	})

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		e := d.edges[k]
		to := string(e.To)
		switch {
		case e.RestoreSnapshot:
			to = "<status_before_edit_request>"
		case e.Quorum:
			to = fmt.Sprintf("%s (quorum) | %s", k.from, e.To)
		case e.DirectTo != "":
			to = fmt.Sprintf("%s | direct: %s", e.To, e.DirectTo)
		}
		lines = append(lines, fmt.Sprintf("%s --%s/%s--> %s", k.from, k.action, e.Role, to))
	}
	return lines
}

// ── 流程定义 ──

type tableBuilder struct {
	def *Definition
}

func newTable(name Name, submitter Role, kinds []Kind, rank map[Status]int) *tableBuilder {
	return &tableBuilder{def: &Definition{
		Name:      name,
		Submitter: submitter,
		Kinds:     kinds,
		edges:     make(map[edgeKey]Edge),
		rank:      rank,
	}}
}

func (b *tableBuilder) on(from Status, action Action, e Edge) *tableBuilder {
	k := edgeKey{from: from, action: action}
	if _, dup := b.def.edges[k]; dup {
		panic(fmt.Sprintf("workflow %s: 重复的转移 %s/%s", b.def.Name, from, action))
	}
	b.def.edges[k] = e
	return b
}

// drcTail DRC 召集人 → DRC 成员 → HOD 的公共部分
func (b *tableBuilder) drcTail() *tableBuilder {
	b.on(StatusDrcConvenerReview, ActionApprove, Edge{Role: RoleDrcConvener, To: StatusDrcApproved, DirectTo: StatusHodReview}).
		on(StatusDrcConvenerReview, ActionRevert, Edge{Role: RoleDrcConvener, To: StatusRevertedByDrcConvener, RequireComments: true}).
		on(StatusDrcConvenerReview, ActionReject, Edge{Role: RoleDrcConvener, To: StatusRejected, RequireComments: true, InitialOnly: true}).
		on(StatusDrcConvenerReview, ActionForwardToDrc, Edge{Role: RoleDrcConvener, To: StatusDrcMemberReview, AssignDrc: true}).
		on(StatusDrcConvenerReview, ActionForwardToHod, Edge{Role: RoleDrcConvener, To: StatusHodReview}).
		on(StatusDrcApproved, ActionForwardToHod, Edge{Role: RoleDrcConvener, To: StatusHodReview}).
		on(StatusDrcMemberReview, ActionMemberReview, Edge{Role: RoleDrcMember, To: StatusDrcConvenerReview, Quorum: true}).
		on(StatusHodReview, ActionApprove, Edge{Role: RoleHod, To: StatusCompleted}).
		on(StatusHodReview, ActionRevert, Edge{
			Role:            RoleHod,
			To:              StatusRevertedByHod,
			KindTo:          map[Kind]Status{KindFinalThesisSubmission: StatusStudentReview},
			RequireComments: true,
		})

	// 修改请求子协议
	for _, s := range []Status{StatusDrcConvenerReview, StatusDrcMemberReview, StatusDrcApproved, StatusHodReview} {
		b.on(s, ActionRequestEdit, Edge{Role: b.def.Submitter, To: StatusPendingEditApproval, OpenEdit: EditRequestEdit})
	}
	b.on(StatusPendingEditApproval, ActionRejectEdit, Edge{Role: RoleDrcConvener, ResolveEdit: true, RestoreSnapshot: true, Silent: true})
	return b
}

func newPhdRequestDefinition() *Definition {
	rank := map[Status]int{
		StatusDraft:                 0,
		StatusStudentReview:         1,
		StatusSupervisorReview:      1,
		StatusRevertedByDrcConvener: 1,
		StatusRevertedByHod:         1,
		StatusDrcConvenerReview:     2,
		StatusDrcMemberReview:       3,
		StatusDrcApproved:           4,
		StatusHodReview:             5,
		StatusPendingEditApproval:   5,
		StatusCompleted:             6,
		StatusRejected:              6,
		StatusDeleted:               6,
	}
	b := newTable(PhdRequest, RoleSupervisor, []Kind{
		KindPreSubmission, KindThesisSubmission, KindFinalThesisSubmission, KindCourseWork, KindSupervisorChange,
	}, rank)

	submit := Edge{Role: RoleSupervisor, To: StatusDrcConvenerReview, Submission: true}
	b.on(StatusSupervisorReview, ActionSubmit, submit).
		on(StatusRevertedByDrcConvener, ActionSubmit, submit).
		on(StatusRevertedByHod, ActionSubmit, submit).
		on(StatusStudentReview, ActionSubmit, Edge{Role: RoleStudent, To: StatusDrcConvenerReview, Submission: true})

	b.drcTail()
	b.on(StatusPendingEditApproval, ActionApproveEdit, Edge{
		Role:        RoleDrcConvener,
		To:          StatusSupervisorReview,
		KindTo:      map[Kind]Status{KindFinalThesisSubmission: StatusStudentReview},
		ResolveEdit: true,
	})
	return b.def
}

func newPhdProposalDefinition() *Definition {
	rank := map[Status]int{
		StatusDraft:                 0,
		StatusStudentReview:         0,
		StatusRevertedBySupervisor:  0,
		StatusRevertedByDrcConvener: 0,
		StatusRevertedByHod:         0,
		StatusSupervisorReview:      1,
		StatusDrcConvenerReview:     2,
		StatusDrcMemberReview:       3,
		StatusDrcApproved:           4,
		StatusHodReview:             5,
		StatusPendingEditApproval:   5,
		StatusCompleted:             6,
		StatusRejected:              6,
		StatusDeleted:               6,
	}
	b := newTable(PhdProposal, RoleStudent, []Kind{KindResearchProposal, KindRevisedProposal}, rank)

	submit := Edge{Role: RoleStudent, To: StatusSupervisorReview, Submission: true}
	for _, s := range []Status{StatusDraft, StatusStudentReview, StatusRevertedBySupervisor, StatusRevertedByDrcConvener, StatusRevertedByHod} {
		b.on(s, ActionSubmit, submit)
	}
	b.on(StatusSupervisorReview, ActionApprove, Edge{Role: RoleSupervisor, To: StatusDrcConvenerReview, NominateDac: true}).
		on(StatusSupervisorReview, ActionRevert, Edge{Role: RoleSupervisor, To: StatusRevertedBySupervisor, RequireComments: true})

	b.drcTail()
	for _, s := range []Status{StatusDrcConvenerReview, StatusDrcMemberReview, StatusDrcApproved, StatusHodReview} {
		b.on(s, ActionRequestDelete, Edge{Role: RoleStudent, To: StatusPendingEditApproval, OpenEdit: EditRequestDelete})
	}
	b.on(StatusPendingEditApproval, ActionApproveEdit, Edge{Role: RoleDrcConvener, To: StatusStudentReview, ResolveEdit: true})
	return b.def
}

var (
	phdRequestDef  = newPhdRequestDefinition()
	phdProposalDef = newPhdProposalDefinition()
)

// RequestDefinition PhD Request 流程
func RequestDefinition() *Definition { return phdRequestDef }

// ProposalDefinition PhD Proposal 流程
func ProposalDefinition() *Definition { return phdProposalDef }

// Lookup 按名称获取流程定义
func Lookup(name Name) (*Definition, bool) {
	switch name {
	case PhdRequest:
		return phdRequestDef, true
	case PhdProposal:
		return phdProposalDef, true
	}
	return nil, false
}
