package workflow

import (
	"strings"

	pkgerrors "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/errors"
)

// ── 输入 ──

// Actor 执行动作的用户（邮箱 + 权限字符串）
type Actor struct {
	Email       string
	Permissions []string
}

// Has 是否持有权限
func (a Actor) Has(perm string) bool {
	if perm == "" {
		return false
	}
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Assignment 本轮 DRC 成员及其决定
type Assignment struct {
	MemberEmail string
	Status      AssignmentStatus
}

// Snapshot 聚合在事务内读取到的状态
type Snapshot struct {
	ID                      uint
	Kind                    Kind
	Status                  Status
	StatusBeforeEditRequest *Status
	EditRequestType         EditRequestType
	StudentEmail            string
	SupervisorEmail         string
	// Assignments 本轮 DRC 成员，必须在同一事务内加锁读取
	Assignments   []Assignment
	DocumentCount int
}

func (s *Snapshot) emailOf(r Role) string {
	switch r {
	case RoleStudent:
		return s.StudentEmail
	case RoleSupervisor:
		return s.SupervisorEmail
	}
	return ""
}

func (s *Snapshot) assignmentOf(email string) *Assignment {
	for i := range s.Assignments {
		if sameEmail(s.Assignments[i].MemberEmail, email) {
			return &s.Assignments[i]
		}
	}
	return nil
}

// PendingMembers 尚未决定的成员（排除 exclude）
func (s *Snapshot) PendingMembers(exclude string) []string {
	var out []string
	for _, a := range s.Assignments {
		if a.Status == AssignmentPending && !sameEmail(a.MemberEmail, exclude) {
			out = append(out, a.MemberEmail)
		}
	}
	return out
}

// NewDocument 新上传的证明文件引用
type NewDocument struct {
	FileID       string
	FileName     string
	DocumentType string
	IsPrivate    bool
}

// Command 一次流程动作
type Command struct {
	Actor  Actor
	Action Action
	// Role 处理接口期望的阶段角色；为空时不限定
	Role       Role
	Approved   bool
	Comments   string
	DrcMembers []string
	DacMembers []string
	Documents  []NewDocument
}

// CreateCommand 创建申请
type CreateCommand struct {
	Actor           Actor
	Kind            Kind
	StudentEmail    string
	SupervisorEmail string
	Comments        string
	Documents       []NewDocument
	// Submit 仅对 proposal 有效，false 时保存为草稿
	Submit bool
}

// ── 输出 ──

// ReviewRecord 追加到评审台账的一条记录
type ReviewRecord struct {
	ReviewerEmail  string
	ReviewerRole   Role
	Approved       bool
	Comments       string
	StatusAtReview Status
	// MemberPosition DRC 成员在其所属轮次中的编号，其他角色为 0
	MemberPosition int
}

// MemberDecision DRC 成员本轮决定
type MemberDecision struct {
	MemberEmail string
	Status      AssignmentStatus
}

// Outcome 转移结果：在同一事务内原子写入，Effects 在提交后执行
type Outcome struct {
	From                    Status
	To                      Status
	StatusBeforeEditRequest *Status
	EditRequestType         EditRequestType
	Comments                string

	Review *ReviewRecord

	ReplaceDocuments bool
	// RemoveDocuments 申请被删除，清除全部文档
	RemoveDocuments bool
	NewDocuments    []NewDocument

	// AssignDrcMembers 非空时整体替换本轮 DRC 成员
	AssignDrcMembers []string
	// ClearDrcRound 放弃未完成的 DRC 成员评审轮次
	ClearDrcRound bool
	Decision      *MemberDecision
	// PendingAfter 本次决定后仍未决定的成员数，事务内写入后需复核
	PendingAfter int
	DacMembers   []string

	Effects Effects
}

// Advanced 是否离开了原阶段
func (o *Outcome) Advanced() bool { return o.From != o.To }

// ── Engine ──

// Engine 纯状态机：不做 IO，返回新状态与副作用描述
type Engine struct {
	DirectFlow    bool
	DrcMaxMembers int
	DacMinMembers int
}

// NewEngine 创建 Engine
func NewEngine(directFlow bool, drcMaxMembers, dacMinMembers int) *Engine {
	return &Engine{DirectFlow: directFlow, DrcMaxMembers: drcMaxMembers, DacMinMembers: dacMinMembers}
}

// Apply 对已有申请执行动作
func (e *Engine) Apply(d *Definition, snap Snapshot, cmd Command) (*Outcome, error) {
	cmd.Actor.Email = normalizeEmail(cmd.Actor.Email)
	cmd.Comments = strings.TrimSpace(cmd.Comments)

	if snap.Status.IsTerminal() {
		return nil, pkgerrors.TooLate("申请已结束（%s），不能再执行 %s", snap.Status, cmd.Action)
	}

	edge, ok := d.Edge(snap.Status, cmd.Action)
	if !ok || (cmd.Role != "" && edge.Role != cmd.Role) {
		return nil, e.positionError(d, &snap, cmd)
	}
	if err := e.authorize(d, edge, &snap, cmd.Actor); err != nil {
		return nil, err
	}
	if err := e.validate(edge, &snap, &cmd); err != nil {
		return nil, err
	}

	out := &Outcome{From: snap.Status, To: e.target(edge, &snap), Comments: cmd.Comments}
	after := snap
	after.Assignments = append([]Assignment(nil), snap.Assignments...)

	switch {
	case edge.Quorum:
		decided := AssignmentReverted
		if cmd.Approved {
			decided = AssignmentApproved
		}
		out.Decision = &MemberDecision{MemberEmail: cmd.Actor.Email, Status: decided}
		out.PendingAfter = len(snap.PendingMembers(cmd.Actor.Email))
		if a := after.assignmentOf(cmd.Actor.Email); a != nil {
			a.Status = decided
		}
		// 成员意见不一致不会自动退回，由召集人阅读台账后决定
		if out.PendingAfter > 0 {
			out.To = snap.Status
		}
	case edge.AssignDrc:
		out.AssignDrcMembers = cmd.DrcMembers
		after.Assignments = make([]Assignment, 0, len(cmd.DrcMembers))
		for _, m := range cmd.DrcMembers {
			after.Assignments = append(after.Assignments, Assignment{MemberEmail: m, Status: AssignmentPending})
		}
	case edge.NominateDac:
		out.DacMembers = cmd.DacMembers
	}

	if edge.Submission {
		out.Comments = ""
		if len(cmd.Documents) > 0 {
			out.ReplaceDocuments = true
			out.NewDocuments = cmd.Documents
		}
	}

	if edge.OpenEdit != EditRequestNone {
		from := snap.Status
		out.StatusBeforeEditRequest = &from
		out.EditRequestType = edge.OpenEdit
	}

	if edge.ResolveEdit && !edge.RestoreSnapshot {
		if out.To == StatusDeleted {
			out.RemoveDocuments = true
		}
		// 修改请求打断了成员评审，该轮作废
		if snap.StatusBeforeEditRequest != nil && *snap.StatusBeforeEditRequest == StatusDrcMemberReview {
			out.ClearDrcRound = true
			after.Assignments = nil
		}
	}

	out.Review = &ReviewRecord{
		ReviewerEmail:  cmd.Actor.Email,
		ReviewerRole:   edge.Role,
		Approved:       approvedFor(cmd),
		Comments:       cmd.Comments,
		StatusAtReview: snap.Status,
	}
	if edge.Quorum {
		for i, a := range snap.Assignments {
			if sameEmail(a.MemberEmail, cmd.Actor.Email) {
				out.Review.MemberPosition = i + 1
				break
			}
		}
	}

	after.Status = out.To
	after.StatusBeforeEditRequest = out.StatusBeforeEditRequest
	after.EditRequestType = out.EditRequestType
	out.Effects = e.plan(d, edge, &snap, &after, out, cmd.Actor.Email)
	return out, nil
}

// Create 创建申请，返回初始状态与快照
func (e *Engine) Create(d *Definition, cmd CreateCommand) (*Outcome, *Snapshot, error) {
	actor := normalizeEmail(cmd.Actor.Email)
	if !d.SupportsKind(cmd.Kind) {
		return nil, nil, pkgerrors.Validation("不支持的申请类别: %s", cmd.Kind)
	}
	if err := validateDocuments(cmd.Documents); err != nil {
		return nil, nil, err
	}

	snap := &Snapshot{Kind: cmd.Kind, Status: StatusDraft}
	switch d.Submitter {
	case RoleSupervisor:
		snap.SupervisorEmail = actor
		snap.StudentEmail = normalizeEmail(cmd.StudentEmail)
	default:
		snap.StudentEmail = actor
		snap.SupervisorEmail = normalizeEmail(cmd.SupervisorEmail)
	}
	if snap.StudentEmail == "" || snap.SupervisorEmail == "" {
		return nil, nil, pkgerrors.Validation("学生与导师邮箱不能为空")
	}
	if sameEmail(snap.StudentEmail, snap.SupervisorEmail) {
		return nil, nil, pkgerrors.Validation("学生与导师不能为同一人")
	}

	to := d.FirstReviewStage()
	switch {
	case d.Name == PhdRequest && cmd.Kind == KindFinalThesisSubmission:
		// 终稿由学生上传
		to = StatusStudentReview
	case d.Name == PhdProposal && !cmd.Submit:
		to = StatusDraft
	}
	if to != StatusDraft && to != StatusStudentReview && len(cmd.Documents) == 0 {
		return nil, nil, pkgerrors.Validation("至少需要上传一份文档")
	}

	out := &Outcome{
		From:         StatusDraft,
		To:           to,
		Comments:     "",
		NewDocuments: cmd.Documents,
	}
	if to != StatusDraft {
		out.Review = &ReviewRecord{
			ReviewerEmail:  actor,
			ReviewerRole:   d.Submitter,
			Approved:       true,
			Comments:       strings.TrimSpace(cmd.Comments),
			StatusAtReview: StatusDraft,
		}
		if st, ok := StageOf(to); ok {
			out.Effects.create(st, to, d.AudienceOf(to, snap), true)
		}
	}
	snap.Status = to
	snap.DocumentCount = len(cmd.Documents)
	return out, snap, nil
}

// Available 当前用户在该状态下可以成功执行的动作
// 除身份外还检查不依赖请求参数的结构性守卫
func (e *Engine) Available(d *Definition, snap Snapshot, actor Actor) []Action {
	if snap.Status.IsTerminal() {
		return nil
	}
	actor.Email = normalizeEmail(actor.Email)
	var out []Action
	for _, a := range d.Actions(snap.Status) {
		edge, _ := d.Edge(snap.Status, a)
		if e.authorize(d, edge, &snap, actor) != nil {
			continue
		}
		if e.structural(edge, &snap) != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ── 守卫 ──

func (e *Engine) positionError(d *Definition, snap *Snapshot, cmd Command) error {
	if snap.Status == StatusPendingEditApproval {
		return pkgerrors.TooEarly("申请存在待处理的修改请求，暂不能执行 %s", cmd.Action)
	}
	if cmd.Action == ActionMemberReview {
		if a := snap.assignmentOf(cmd.Actor.Email); a != nil && a.Status != AssignmentPending {
			return pkgerrors.TooLate("您已完成本轮 DRC 评审")
		}
	}

	sources := d.Sources(cmd.Action, cmd.Role)
	if len(sources) == 0 {
		return pkgerrors.Validation("流程 %s 不支持动作 %s", d.Name, cmd.Action)
	}
	cur := d.Rank(snap.Status)
	for _, s := range sources {
		if d.Rank(s) > cur {
			return pkgerrors.TooEarly("申请尚未进入可执行 %s 的阶段（当前: %s）", cmd.Action, snap.Status)
		}
	}
	return pkgerrors.TooLate("申请已越过可执行 %s 的阶段（当前: %s）", cmd.Action, snap.Status)
}

func (e *Engine) authorize(d *Definition, edge Edge, snap *Snapshot, actor Actor) error {
	switch edge.Role {
	case RoleStudent:
		if !sameEmail(actor.Email, snap.StudentEmail) {
			return pkgerrors.Forbidden("只有该申请的学生可以执行此操作")
		}
	case RoleSupervisor:
		if !sameEmail(actor.Email, snap.SupervisorEmail) {
			return pkgerrors.Forbidden("只有该申请的导师可以执行此操作")
		}
	case RoleDrcConvener, RoleHod:
		if !actor.Has(d.Permission(edge.Role)) {
			return pkgerrors.Forbidden("需要 %s 权限", d.Permission(edge.Role))
		}
	case RoleDrcMember:
		a := snap.assignmentOf(actor.Email)
		if a == nil {
			return pkgerrors.Forbidden("您不是本轮指定的 DRC 成员")
		}
		if a.Status != AssignmentPending {
			return pkgerrors.Conflict("您已提交过本轮评审")
		}
	default:
		return pkgerrors.Forbidden("未知角色: %s", edge.Role)
	}
	return nil
}

func (e *Engine) validate(edge Edge, snap *Snapshot, cmd *Command) error {
	if edge.RequireComments && cmd.Comments == "" {
		return pkgerrors.Validation("退回或驳回时必须填写意见")
	}
	if err := e.structural(edge, snap); err != nil {
		return err
	}
	if edge.AssignDrc {
		members, err := normalizeMembers(cmd.DrcMembers, snap)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return pkgerrors.Validation("至少需要指定一名 DRC 成员")
		}
		if e.DrcMaxMembers > 0 && len(members) > e.DrcMaxMembers {
			return pkgerrors.Validation("DRC 成员不能超过 %d 名", e.DrcMaxMembers)
		}
		cmd.DrcMembers = members
	}
	if edge.NominateDac {
		members, err := normalizeMembers(cmd.DacMembers, snap)
		if err != nil {
			return err
		}
		if len(members) < e.DacMinMembers {
			return pkgerrors.Validation("至少需要提名 %d 名 DAC 成员", e.DacMinMembers)
		}
		cmd.DacMembers = members
	}
	if edge.Submission {
		if err := validateDocuments(cmd.Documents); err != nil {
			return err
		}
		if snap.DocumentCount == 0 && len(cmd.Documents) == 0 {
			return pkgerrors.Validation("至少需要上传一份文档")
		}
	}
	return nil
}

// structural 只依赖聚合状态的守卫
func (e *Engine) structural(edge Edge, snap *Snapshot) error {
	if edge.InitialOnly && len(snap.Assignments) > 0 {
		return pkgerrors.TooLate("已分配过 DRC 成员评审，不能直接驳回")
	}
	if edge.RestoreSnapshot && snap.StatusBeforeEditRequest == nil {
		return pkgerrors.TooLate("修改请求缺少原状态快照")
	}
	return nil
}

func (e *Engine) target(edge Edge, snap *Snapshot) Status {
	if edge.RestoreSnapshot {
		return *snap.StatusBeforeEditRequest
	}
	if edge.ResolveEdit && snap.EditRequestType == EditRequestDelete {
		return StatusDeleted
	}
	to := edge.To
	if edge.DirectTo != "" && e.DirectFlow {
		to = edge.DirectTo
	}
	if k, ok := edge.KindTo[snap.Kind]; ok {
		to = k
	}
	return to
}

// ── 副作用规划 ──

func (e *Engine) plan(d *Definition, edge Edge, before, after *Snapshot, out *Outcome, actor string) Effects {
	var fx Effects

	if !out.Advanced() {
		// 本轮仍有成员未决定：只清除当前成员自己的待办
		fx.complete(StageDrcMemberReview, actor)
		return fx
	}

	if st, ok := StageOf(out.From); ok {
		fx.complete(st, "")
	}
	if st, ok := StageOf(out.To); ok {
		fx.create(st, out.To, d.AudienceOf(out.To, after), !edge.Silent)
	}

	parties := Audience{Emails: withoutEmail(nonEmpty(before.emailOf(d.Submitter), before.SupervisorEmail, before.StudentEmail), actor)}
	requester := Audience{Emails: nonEmpty(before.emailOf(d.Submitter))}

	switch {
	case out.To == StatusCompleted:
		fx.notify(NoticeCompleted, parties, out.Comments)
	case out.To == StatusRejected:
		fx.notify(NoticeRejected, parties, out.Comments)
	case out.To == StatusDeleted:
		fx.notify(NoticeDeleted, parties, out.Comments)
	case edge.RestoreSnapshot:
		fx.notify(NoticeEditRejected, requester, out.Comments)
	case edge.ResolveEdit:
		fx.notify(NoticeEditApproved, requester, out.Comments)
	case edge.RequireComments && out.From != StatusPendingEditApproval:
		// 退回：通知原提交方与导师
		fx.notify(NoticeReverted, parties, out.Comments)
	}
	return fx
}

// ── 辅助 ──

func approvedFor(cmd Command) bool {
	switch cmd.Action {
	case ActionRevert, ActionReject, ActionRejectEdit:
		return false
	case ActionMemberReview:
		return cmd.Approved
	}
	return true
}

func normalizeMembers(raw []string, snap *Snapshot) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, m := range raw {
		email := normalizeEmail(m)
		if email == "" {
			return nil, pkgerrors.Validation("成员邮箱不能为空")
		}
		if !strings.Contains(email, "@") {
			return nil, pkgerrors.Validation("无效的成员邮箱: %s", m)
		}
		if seen[email] {
			return nil, pkgerrors.Validation("成员重复: %s", email)
		}
		if sameEmail(email, snap.StudentEmail) || sameEmail(email, snap.SupervisorEmail) {
			return nil, pkgerrors.Validation("学生或导师不能作为评审成员: %s", email)
		}
		seen[email] = true
		out = append(out, email)
	}
	return out, nil
}

func validateDocuments(docs []NewDocument) error {
	for _, doc := range docs {
		if strings.TrimSpace(doc.FileID) == "" {
			return pkgerrors.Validation("文档缺少文件 ID")
		}
		if strings.TrimSpace(doc.DocumentType) == "" {
			return pkgerrors.Validation("文档缺少类型")
		}
	}
	return nil
}

func withoutEmail(emails []string, exclude string) []string {
	out := emails[:0:0]
	for _, e := range emails {
		if !sameEmail(e, exclude) {
			out = append(out, e)
		}
	}
	return out
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sameEmail(a, b string) bool {
	return a != "" && normalizeEmail(a) == normalizeEmail(b)
}
