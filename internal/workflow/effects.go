package workflow

// Audience 待办/通知的接收方：显式邮箱，或由权限字符串解析出的用户
type Audience struct {
	Emails     []string
	Permission string
}

// Empty 是否无接收方
func (a Audience) Empty() bool {
	return len(a.Emails) == 0 && a.Permission == ""
}

// TodoCompletion 清除待办；AssignedTo 为空时清除该事件下所有人的待办
type TodoCompletion struct {
	Stage      StageKey
	AssignedTo string
}

// TodoCreation 为进入的阶段创建待办
type TodoCreation struct {
	Stage    StageKey
	Status   Status
	Audience Audience
	// Notify 是否同时发送邮件
	Notify bool
}

// NoticeKind 通知类型
type NoticeKind string

const (
	NoticeReverted     NoticeKind = "reverted"
	NoticeCompleted    NoticeKind = "completed"
	NoticeRejected     NoticeKind = "rejected"
	NoticeDeleted      NoticeKind = "deleted"
	NoticeEditApproved NoticeKind = "edit_approved"
	NoticeEditRejected NoticeKind = "edit_rejected"
)

// Notice 站内通知 + 邮件
type Notice struct {
	Kind     NoticeKind
	Audience Audience
	Comments string
}

// Effects 提交事务后才执行的副作用描述
type Effects struct {
	Completions []TodoCompletion
	Creations   []TodoCreation
	Notices     []Notice
}

func (e *Effects) complete(stage StageKey, assignee string) {
	for _, c := range e.Completions {
		if c.Stage == stage && (c.AssignedTo == "" || c.AssignedTo == assignee) {
			return
		}
	}
	e.Completions = append(e.Completions, TodoCompletion{Stage: stage, AssignedTo: assignee})
}

func (e *Effects) create(stage StageKey, status Status, aud Audience, notify bool) {
	if aud.Empty() {
		return
	}
	for _, c := range e.Creations {
		if c.Stage == stage {
			return
		}
	}
	e.Creations = append(e.Creations, TodoCreation{Stage: stage, Status: status, Audience: aud, Notify: notify})
}

func (e *Effects) notify(kind NoticeKind, aud Audience, comments string) {
	if aud.Empty() {
		return
	}
	e.Notices = append(e.Notices, Notice{Kind: kind, Audience: aud, Comments: comments})
}

// StageOf 状态对应的待办阶段；无待办的状态返回 false
func StageOf(s Status) (StageKey, bool) {
	switch s {
	case StatusStudentReview:
		return StageStudentReview, true
	case StatusSupervisorReview:
		return StageSupervisorReview, true
	case StatusDrcConvenerReview:
		return StageDrcConvenerReview, true
	case StatusDrcMemberReview:
		return StageDrcMemberReview, true
	case StatusDrcApproved:
		return StageDrcForwardHod, true
	case StatusHodReview:
		return StageHodReview, true
	case StatusRevertedBySupervisor, StatusRevertedByDrcConvener, StatusRevertedByHod:
		return StageResubmit, true
	case StatusPendingEditApproval:
		return StageEditApproval, true
	}
	return "", false
}

// AudienceOf 某状态下需要行动的一方
func (d *Definition) AudienceOf(s Status, snap *Snapshot) Audience {
	switch s {
	case StatusStudentReview:
		return Audience{Emails: nonEmpty(snap.StudentEmail)}
	case StatusSupervisorReview:
		return Audience{Emails: nonEmpty(snap.SupervisorEmail)}
	case StatusDrcConvenerReview, StatusDrcApproved, StatusPendingEditApproval:
		return Audience{Permission: d.Permission(RoleDrcConvener)}
	case StatusDrcMemberReview:
		return Audience{Emails: snap.PendingMembers("")}
	case StatusHodReview:
		return Audience{Permission: d.Permission(RoleHod)}
	case StatusRevertedBySupervisor, StatusRevertedByDrcConvener, StatusRevertedByHod:
		return Audience{Emails: nonEmpty(snap.emailOf(d.Submitter))}
	}
	return Audience{}
}

func nonEmpty(emails ...string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
