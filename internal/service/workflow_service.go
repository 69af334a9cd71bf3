package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/config"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/dto"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	pkgerrors "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/errors"
	applogger "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/logger"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/metrics"
)

// ActionCreate 创建申请在转移事件中的动作名
const ActionCreate = "create"

const timeLayout = "2006-01-02T15:04:05Z"

// WorkflowService 审批流程业务接口（每个流程定义一个实例）
//
// 设计说明：
//   - 每个动作在单个事务内完成：行锁读取聚合 → Engine 计算 → 写入
//   - 守卫失败在任何写入之前返回，聚合保持不变
//   - 待办 / 邮件 / 事件等副作用在提交后由 EffectDispatcher 执行
type WorkflowService interface {
	Name() workflow.Name
	Create(ctx context.Context, actor workflow.Actor, req *dto.CreateWorkflowRequest) (*dto.WorkflowDetailResponse, error)
	Get(ctx context.Context, actor workflow.Actor, id uint) (*dto.WorkflowDetailResponse, error)
	List(ctx context.Context, actor workflow.Actor, req *dto.ListWorkflowRequest) ([]dto.WorkflowSummaryResponse, int64, error)

	Submit(ctx context.Context, actor workflow.Actor, id uint, req *dto.SubmitRequest) (*dto.TransitionResponse, error)
	SupervisorReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.SupervisorReviewRequest) (*dto.TransitionResponse, error)
	DrcConvenerReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.DrcConvenerReviewRequest) (*dto.TransitionResponse, error)
	DrcMemberReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.DrcMemberReviewRequest) (*dto.TransitionResponse, error)
	HodReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.HodReviewRequest) (*dto.TransitionResponse, error)
	RequestEdit(ctx context.Context, actor workflow.Actor, id uint, req *dto.EditRequestRequest) (*dto.TransitionResponse, error)
	ResolveEdit(ctx context.Context, actor workflow.Actor, id uint, req *dto.ResolveEditRequest) (*dto.TransitionResponse, error)

	// Act 执行任意动作，上面的具体方法均委托于此
	Act(ctx context.Context, id uint, cmd workflow.Command) (*dto.TransitionResponse, error)
}

type workflowService struct {
	def        *workflow.Definition
	repo       *repository.Repository
	settings   SystemConfigService
	dispatcher EffectDispatcher
	limits     config.WorkflowConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewWorkflowService 创建 WorkflowService 实例
func NewWorkflowService(
	def *workflow.Definition,
	repo *repository.Repository,
	settings SystemConfigService,
	dispatcher EffectDispatcher,
	limits config.WorkflowConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) WorkflowService {
	return &workflowService{
		def:        def,
		repo:       repo,
		settings:   settings,
		dispatcher: dispatcher,
		limits:     limits,
		metrics:    m,
		logger:     logger.With(zap.String("workflow", string(def.Name))),
	}
}

func (s *workflowService) Name() workflow.Name { return s.def.Name }

// ────────────────────── Create ──────────────────────

func (s *workflowService) Create(ctx context.Context, actor workflow.Actor, req *dto.CreateWorkflowRequest) (*dto.WorkflowDetailResponse, error) {
	submit := true
	if req.Submit != nil {
		submit = *req.Submit
	}
	settings := s.settings.Settings(ctx)

	out, snap, err := s.engine(settings).Create(s.def, workflow.CreateCommand{
		Actor:           actor,
		Kind:            workflow.Kind(req.Kind),
		StudentEmail:    req.StudentEmail,
		SupervisorEmail: req.SupervisorEmail,
		Comments:        req.Comments,
		Documents:       toNewDocuments(req.Documents),
		Submit:          submit,
	})
	if err != nil {
		s.metrics.ObserveRejection(string(s.def.Name), ActionCreate, string(pkgerrors.KindOf(err)))
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(actor.Email))
	row := &model.WorkflowRequest{
		Workflow:        string(s.def.Name),
		Kind:            string(snap.Kind),
		StudentEmail:    snap.StudentEmail,
		SupervisorEmail: snap.SupervisorEmail,
		Status:          string(snap.Status),
		VersionedModel: model.VersionedModel{
			BaseModel: model.BaseModel{CreatedBy: &email, UpdatedBy: &email},
			Version:   1,
		},
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Request.Create(ctx, row); err != nil {
			return err
		}
		if err := tx.Document.BatchCreate(ctx, toDocumentModels(row.ID, email, out.NewDocuments)); err != nil {
			return err
		}
		if out.Review != nil {
			return tx.Review.Create(ctx, toReviewModel(row.ID, out.Review))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("创建申请失败", zap.String("actor", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("申请已创建",
		zap.Uint("request_id", row.ID),
		zap.String("kind", row.Kind),
		zap.String("status", row.Status),
		zap.String("actor", email),
	)

	s.dispatcher.Dispatch(ctx, Committed{
		Workflow:     s.def.Name,
		RequestID:    row.ID,
		Kind:         snap.Kind,
		Action:       ActionCreate,
		Actor:        email,
		From:         out.From,
		To:           out.To,
		Effects:      out.Effects,
		DeadlineDays: settings.TodoDeadlineDays,
	})

	return s.Get(ctx, actor, row.ID)
}

// ────────────────────── Get ──────────────────────

func (s *workflowService) Get(ctx context.Context, actor workflow.Actor, id uint) (*dto.WorkflowDetailResponse, error) {
	row, err := s.repo.Request.GetByID(ctx, string(s.def.Name), id)
	if err != nil {
		return nil, s.mapLoadError(err, id)
	}
	assignments, err := s.repo.DrcAssignment.ListByRequest(ctx, id)
	if err != nil {
		s.logger.Error("查询 DRC 成员失败", zap.Uint("request_id", id), zap.Error(err))
		return nil, err
	}
	dac, err := s.repo.DacMember.ListByRequest(ctx, id)
	if err != nil {
		s.logger.Error("查询 DAC 成员失败", zap.Uint("request_id", id), zap.Error(err))
		return nil, err
	}
	if !s.canView(actor, row, assignments, dac) {
		return nil, pkgerrors.NotFound("申请 #%d 不存在", id)
	}
	reviews, err := s.repo.Review.ListByRequest(ctx, id)
	if err != nil {
		s.logger.Error("查询评审台账失败", zap.Uint("request_id", id), zap.Error(err))
		return nil, err
	}

	status := workflow.Status(row.Status)
	viewerIsStudent := sameParty(actor.Email, row.StudentEmail)
	showMembers := workflow.MemberIdentityVisible(status, viewerIsStudent)

	resp := &dto.WorkflowDetailResponse{
		WorkflowSummaryResponse: toSummary(row),
		StatusBeforeEditRequest: row.StatusBeforeEditRequest,
		EditRequestType:         row.EditRequestType,
		Comments:                row.Comments,
		CreatedAt:               row.CreatedAt.Format(timeLayout),
		Documents:               make([]dto.DocumentResponse, 0, len(row.Documents)),
		DrcAssignments:          make([]dto.AssignmentResponse, 0, len(assignments)),
		Ledger:                  make([]dto.LedgerLineResponse, 0, len(reviews)),
		AvailableActions:        []string{},
	}

	for _, d := range row.Documents {
		if d.IsPrivate && viewerIsStudent {
			continue
		}
		resp.Documents = append(resp.Documents, dto.DocumentResponse{
			ID:              d.ID,
			FileID:          d.FileID,
			FileName:        d.FileName,
			DocumentType:    d.DocumentType,
			IsPrivate:       d.IsPrivate,
			UploadedByEmail: d.UploadedByEmail,
			CreatedAt:       d.CreatedAt.Format(timeLayout),
		})
	}

	for i, a := range assignments {
		item := dto.AssignmentResponse{Label: memberLabel(i + 1), Status: a.Status}
		if showMembers {
			item.MemberEmail = a.MemberEmail
		}
		resp.DrcAssignments = append(resp.DrcAssignments, item)
	}

	for _, m := range dac {
		resp.DacMembers = append(resp.DacMembers, m.MemberEmail)
	}

	entries := make([]workflow.LedgerEntry, 0, len(reviews))
	for _, r := range reviews {
		e := workflow.LedgerEntry{
			ID:             r.ID,
			ReviewerEmail:  r.ReviewerEmail,
			ReviewerRole:   workflow.Role(r.ReviewerRole),
			Approved:       r.Approved,
			Comments:       r.Comments,
			StatusAtReview: workflow.Status(r.StatusAtReview),
			CreatedAt:      r.CreatedAt,
		}
		if r.MemberPosition != nil {
			e.MemberPosition = *r.MemberPosition
		}
		if r.Reviewer != nil {
			e.ReviewerName = r.Reviewer.Name
		}
		entries = append(entries, e)
	}
	for _, l := range workflow.DisplayLedger(entries, toAssignments(assignments), status, viewerIsStudent) {
		resp.Ledger = append(resp.Ledger, dto.LedgerLineResponse{
			ID:             l.ID,
			Label:          l.Label,
			ReviewerEmail:  l.ReviewerEmail,
			ReviewerName:   l.ReviewerName,
			Role:           string(l.Role),
			Approved:       l.Approved,
			Comments:       l.Comments,
			StatusAtReview: string(l.StatusAtReview),
			CreatedAt:      l.CreatedAt.Format(timeLayout),
		})
	}

	snap := toSnapshot(row, assignments, len(row.Documents))
	for _, a := range s.engine(s.settings.Settings(ctx)).Available(s.def, snap, actor) {
		resp.AvailableActions = append(resp.AvailableActions, string(a))
	}
	return resp, nil
}

// ────────────────────── List ──────────────────────

func (s *workflowService) List(ctx context.Context, actor workflow.Actor, req *dto.ListWorkflowRequest) ([]dto.WorkflowSummaryResponse, int64, error) {
	name := string(s.def.Name)
	email := strings.ToLower(strings.TrimSpace(actor.Email))
	offset, limit := req.GetOffset(), req.GetPageSize()

	var (
		rows  []model.WorkflowRequest
		total int64
		err   error
	)
	switch req.Scope {
	case "drc-member":
		rows, total, err = s.repo.Request.ListByDrcMember(ctx, name, email, offset, limit)
	case "pending":
		statuses := s.pendingStatuses(actor)
		if len(statuses) == 0 {
			return nil, 0, pkgerrors.Forbidden("需要 %s 或 %s 权限",
				s.def.Permission(workflow.RoleDrcConvener), s.def.Permission(workflow.RoleHod))
		}
		rows, total, err = s.repo.Request.ListByStatus(ctx, name, statuses, offset, limit)
	default:
		rows, total, err = s.repo.Request.ListByParty(ctx, name, email, offset, limit)
	}
	if err != nil {
		s.logger.Error("查询申请列表失败", zap.String("scope", req.Scope), zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.WorkflowSummaryResponse, 0, len(rows))
	for i := range rows {
		list = append(list, toSummary(&rows[i]))
	}
	return list, total, nil
}

func (s *workflowService) pendingStatuses(actor workflow.Actor) []string {
	var out []string
	if actor.Has(s.def.Permission(workflow.RoleDrcConvener)) {
		out = append(out,
			string(workflow.StatusDrcConvenerReview),
			string(workflow.StatusDrcApproved),
			string(workflow.StatusPendingEditApproval),
		)
	}
	if actor.Has(s.def.Permission(workflow.RoleHod)) {
		out = append(out, string(workflow.StatusHodReview))
	}
	return out
}

// ────────────────────── 动作 ──────────────────────

func (s *workflowService) Submit(ctx context.Context, actor workflow.Actor, id uint, req *dto.SubmitRequest) (*dto.TransitionResponse, error) {
	return s.Act(ctx, id, workflow.Command{
		Actor:     actor,
		Action:    workflow.ActionSubmit,
		Comments:  req.Comments,
		Documents: toNewDocuments(req.Documents),
	})
}

func (s *workflowService) SupervisorReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.SupervisorReviewRequest) (*dto.TransitionResponse, error) {
	action := workflow.ActionRevert
	if req.Approved != nil && *req.Approved {
		action = workflow.ActionApprove
	}
	return s.Act(ctx, id, workflow.Command{
		Actor:      actor,
		Action:     action,
		Role:       workflow.RoleSupervisor,
		Approved:   action == workflow.ActionApprove,
		Comments:   req.Comments,
		DacMembers: req.DacMembers,
	})
}

func (s *workflowService) DrcConvenerReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.DrcConvenerReviewRequest) (*dto.TransitionResponse, error) {
	return s.Act(ctx, id, workflow.Command{
		Actor:      actor,
		Action:     workflow.Action(req.Action),
		Role:       workflow.RoleDrcConvener,
		Comments:   req.Comments,
		DrcMembers: req.AssignedDrcMembers,
	})
}

func (s *workflowService) DrcMemberReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.DrcMemberReviewRequest) (*dto.TransitionResponse, error) {
	return s.Act(ctx, id, workflow.Command{
		Actor:    actor,
		Action:   workflow.ActionMemberReview,
		Role:     workflow.RoleDrcMember,
		Approved: req.Approved != nil && *req.Approved,
		Comments: req.Comments,
	})
}

func (s *workflowService) HodReview(ctx context.Context, actor workflow.Actor, id uint, req *dto.HodReviewRequest) (*dto.TransitionResponse, error) {
	action := workflow.ActionRevert
	if req.Approved != nil && *req.Approved {
		action = workflow.ActionApprove
	}
	return s.Act(ctx, id, workflow.Command{
		Actor:    actor,
		Action:   action,
		Role:     workflow.RoleHod,
		Approved: action == workflow.ActionApprove,
		Comments: req.Comments,
	})
}

func (s *workflowService) RequestEdit(ctx context.Context, actor workflow.Actor, id uint, req *dto.EditRequestRequest) (*dto.TransitionResponse, error) {
	action := workflow.ActionRequestEdit
	if req.Type == string(workflow.EditRequestDelete) {
		action = workflow.ActionRequestDelete
	}
	return s.Act(ctx, id, workflow.Command{
		Actor:    actor,
		Action:   action,
		Role:     s.def.Submitter,
		Comments: req.Comments,
	})
}

func (s *workflowService) ResolveEdit(ctx context.Context, actor workflow.Actor, id uint, req *dto.ResolveEditRequest) (*dto.TransitionResponse, error) {
	action := workflow.ActionRejectEdit
	if req.Approved != nil && *req.Approved {
		action = workflow.ActionApproveEdit
	}
	return s.Act(ctx, id, workflow.Command{
		Actor:    actor,
		Action:   action,
		Role:     workflow.RoleDrcConvener,
		Comments: req.Comments,
	})
}

// ═══════════════════════════════════════════════════════════
// Act 单事务执行一次转移
// ═══════════════════════════════════════════════════════════
//
// 步骤：
//  1. 行锁读取聚合与本轮 DRC 分配（并发的成员评审在此串行化）
//  2. Engine.Apply 校验守卫并计算新状态
//  3. 写入成员决定后复核未决定人数，与计算结果不一致时回滚
//  4. 写入文档 / 台账 / 聚合状态（乐观锁）
//  5. 提交后执行副作用

func (s *workflowService) Act(ctx context.Context, id uint, cmd workflow.Command) (*dto.TransitionResponse, error) {
	settings := s.settings.Settings(ctx)
	engine := s.engine(settings)
	name := string(s.def.Name)

	var (
		out     *workflow.Outcome
		kind    workflow.Kind
		removed []string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		row, err := tx.Request.GetForUpdate(ctx, name, id)
		if err != nil {
			return s.mapLoadError(err, id)
		}
		assignments, err := tx.DrcAssignment.ListForUpdate(ctx, id)
		if err != nil {
			return err
		}
		dac, err := tx.DacMember.ListByRequest(ctx, id)
		if err != nil {
			return err
		}
		if !s.canView(cmd.Actor, row, assignments, dac) {
			return pkgerrors.NotFound("申请 #%d 不存在", id)
		}
		docs, err := tx.Document.ListByRequest(ctx, id)
		if err != nil {
			return err
		}

		out, err = engine.Apply(s.def, toSnapshot(row, assignments, len(docs)), cmd)
		if err != nil {
			return err
		}
		kind = workflow.Kind(row.Kind)

		removed, err = s.persist(ctx, tx, row, docs, out, cmd.Actor.Email)
		return err
	})
	if err != nil {
		if ek := pkgerrors.KindOf(err); ek != "" {
			s.metrics.ObserveRejection(name, string(cmd.Action), string(ek))
			applogger.Ctx(ctx, s.logger).Info("动作被拒绝",
				zap.Uint("request_id", id),
				zap.String("action", string(cmd.Action)),
				zap.String("actor", cmd.Actor.Email),
				zap.String("reason", err.Error()),
			)
			return nil, err
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.metrics.ObserveRejection(name, string(cmd.Action), string(pkgerrors.KindConflict))
			return nil, err
		}
		s.logger.Error("执行动作失败",
			zap.Uint("request_id", id),
			zap.String("action", string(cmd.Action)),
			zap.Error(err),
		)
		return nil, err
	}

	applogger.Ctx(ctx, s.logger).Info("状态已转移",
		zap.Uint("request_id", id),
		zap.String("action", string(cmd.Action)),
		zap.String("actor", cmd.Actor.Email),
		zap.String("from", string(out.From)),
		zap.String("to", string(out.To)),
	)

	s.dispatcher.Dispatch(ctx, Committed{
		Workflow:     s.def.Name,
		RequestID:    id,
		Kind:         kind,
		Action:       string(cmd.Action),
		Actor:        strings.ToLower(strings.TrimSpace(cmd.Actor.Email)),
		From:         out.From,
		To:           out.To,
		Effects:      out.Effects,
		RemovedFiles: removed,
		DeadlineDays: settings.TodoDeadlineDays,
	})

	return &dto.TransitionResponse{
		ID:      id,
		From:    string(out.From),
		To:      string(out.To),
		Pending: out.PendingAfter,
	}, nil
}

// persist 在事务内写入 Outcome，返回需要在提交后删除的文件
func (s *workflowService) persist(ctx context.Context, tx *repository.Repository, row *model.WorkflowRequest, docs []model.Document, out *workflow.Outcome, actor string) ([]string, error) {
	actor = strings.ToLower(strings.TrimSpace(actor))

	if out.Decision != nil {
		if err := tx.DrcAssignment.Decide(ctx, row.ID, out.Decision.MemberEmail, string(out.Decision.Status)); err != nil {
			return nil, err
		}
		pending, err := tx.DrcAssignment.CountPending(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		if int(pending) != out.PendingAfter {
			return nil, pkgerrors.Conflict("DRC 成员评审状态已变化，请刷新后重试")
		}
	}
	if len(out.AssignDrcMembers) > 0 || out.ClearDrcRound {
		if err := tx.DrcAssignment.Replace(ctx, row.ID, out.AssignDrcMembers); err != nil {
			return nil, err
		}
	}
	if len(out.DacMembers) > 0 {
		if err := tx.DacMember.Replace(ctx, row.ID, out.DacMembers); err != nil {
			return nil, err
		}
	}

	var removed []string
	if out.ReplaceDocuments || out.RemoveDocuments {
		for _, d := range docs {
			removed = append(removed, d.FileID)
		}
		if err := tx.Document.DeleteByRequest(ctx, row.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Document.BatchCreate(ctx, toDocumentModels(row.ID, actor, out.NewDocuments)); err != nil {
		return nil, err
	}

	if out.Review != nil {
		if err := tx.Review.Create(ctx, toReviewModel(row.ID, out.Review)); err != nil {
			return nil, err
		}
	}

	row.Status = string(out.To)
	row.StatusBeforeEditRequest = nil
	row.EditRequestType = nil
	if out.StatusBeforeEditRequest != nil {
		before := string(*out.StatusBeforeEditRequest)
		editType := string(out.EditRequestType)
		row.StatusBeforeEditRequest = &before
		row.EditRequestType = &editType
	}
	row.Comments = out.Comments
	row.UpdatedBy = &actor
	if err := tx.Request.UpdateState(ctx, row); err != nil {
		return nil, err
	}
	return removed, nil
}

// ── 辅助 ──

func (s *workflowService) engine(settings WorkflowSettings) *workflow.Engine {
	return workflow.NewEngine(settings.DirectFlow, s.limits.DrcMaxMembers, s.limits.DacMinMembers)
}

func (s *workflowService) mapLoadError(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound("申请 #%d 不存在", id)
	}
	s.logger.Error("查询申请失败", zap.Uint("request_id", id), zap.Error(err))
	return err
}

// canView 申请双方、持有本流程评审权限者、本轮 DRC 成员与 DAC 成员可见
// 其他人按不存在处理
func (s *workflowService) canView(actor workflow.Actor, row *model.WorkflowRequest, assignments []model.DrcAssignment, dac []model.DacMember) bool {
	if sameParty(actor.Email, row.StudentEmail) || sameParty(actor.Email, row.SupervisorEmail) {
		return true
	}
	for _, r := range []workflow.Role{workflow.RoleDrcConvener, workflow.RoleHod, workflow.RoleDrcMember} {
		if actor.Has(s.def.Permission(r)) {
			return true
		}
	}
	for _, a := range assignments {
		if sameParty(actor.Email, a.MemberEmail) {
			return true
		}
	}
	for _, m := range dac {
		if sameParty(actor.Email, m.MemberEmail) {
			return true
		}
	}
	return false
}

func sameParty(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	return a != "" && a == strings.ToLower(strings.TrimSpace(b))
}

func toSnapshot(row *model.WorkflowRequest, assignments []model.DrcAssignment, docCount int) workflow.Snapshot {
	snap := workflow.Snapshot{
		ID:              row.ID,
		Kind:            workflow.Kind(row.Kind),
		Status:          workflow.Status(row.Status),
		StudentEmail:    row.StudentEmail,
		SupervisorEmail: row.SupervisorEmail,
		Assignments:     toAssignments(assignments),
		DocumentCount:   docCount,
	}
	if row.StatusBeforeEditRequest != nil {
		before := workflow.Status(*row.StatusBeforeEditRequest)
		snap.StatusBeforeEditRequest = &before
	}
	if row.EditRequestType != nil {
		snap.EditRequestType = workflow.EditRequestType(*row.EditRequestType)
	}
	return snap
}

func toAssignments(rows []model.DrcAssignment) []workflow.Assignment {
	out := make([]workflow.Assignment, 0, len(rows))
	for _, a := range rows {
		out = append(out, workflow.Assignment{MemberEmail: a.MemberEmail, Status: workflow.AssignmentStatus(a.Status)})
	}
	return out
}

func toNewDocuments(in []dto.DocumentInput) []workflow.NewDocument {
	out := make([]workflow.NewDocument, 0, len(in))
	for _, d := range in {
		out = append(out, workflow.NewDocument{
			FileID:       d.FileID,
			FileName:     d.FileName,
			DocumentType: d.DocumentType,
			IsPrivate:    d.IsPrivate,
		})
	}
	return out
}

func toDocumentModels(requestID uint, uploader string, docs []workflow.NewDocument) []model.Document {
	out := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.Document{
			RequestID:       requestID,
			FileID:          d.FileID,
			FileName:        d.FileName,
			DocumentType:    d.DocumentType,
			IsPrivate:       d.IsPrivate,
			UploadedByEmail: uploader,
		})
	}
	return out
}

func toReviewModel(requestID uint, r *workflow.ReviewRecord) *model.Review {
	m := &model.Review{
		RequestID:      requestID,
		ReviewerEmail:  r.ReviewerEmail,
		ReviewerRole:   string(r.ReviewerRole),
		Approved:       r.Approved,
		Comments:       r.Comments,
		StatusAtReview: string(r.StatusAtReview),
	}
	if r.MemberPosition > 0 {
		pos := r.MemberPosition
		m.MemberPosition = &pos
	}
	return m
}

func toSummary(row *model.WorkflowRequest) dto.WorkflowSummaryResponse {
	return dto.WorkflowSummaryResponse{
		ID:              row.ID,
		Workflow:        row.Workflow,
		Kind:            row.Kind,
		StudentEmail:    row.StudentEmail,
		SupervisorEmail: row.SupervisorEmail,
		Status:          row.Status,
		UpdatedAt:       row.UpdatedAt.Format(timeLayout),
	}
}

func memberLabel(position int) string {
	return fmt.Sprintf("%s %d", workflow.RoleDrcMember.Label(), position)
}
