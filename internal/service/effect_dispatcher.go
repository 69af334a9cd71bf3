package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/events"
	applogger "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/logger"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/mailer"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/metrics"
)

// effectTimeout 单次提交后副作用的总时限
const effectTimeout = 30 * time.Second

// Committed 已提交的一次转移，作为副作用执行的输入
type Committed struct {
	Workflow  workflow.Name
	RequestID uint
	Kind      workflow.Kind
	Action    string
	Actor     string
	From      workflow.Status
	To        workflow.Status
	Effects   workflow.Effects
	// RemovedFiles 被替换或随申请删除的文档文件 ID
	RemovedFiles []string
	DeadlineDays int
}

// EffectDispatcher 在事务提交后执行副作用
//
// 所有副作用尽力而为：失败只记录日志与指标，不影响已提交的转移。
// 待办创建按 (module, completion_event, assigned_to) 幂等，重复执行安全。
type EffectDispatcher interface {
	Dispatch(ctx context.Context, c Committed)
}

type effectDispatcher struct {
	repo      *repository.Repository
	directory DirectoryService
	mail      mailer.Mailer
	files     FileStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	baseURL   string
	logger    *zap.Logger
	now       func() time.Time
}

// NewEffectDispatcher 创建 EffectDispatcher；files / publisher / m 可为 nil
func NewEffectDispatcher(
	repo *repository.Repository,
	directory DirectoryService,
	mail mailer.Mailer,
	files FileStore,
	publisher events.Publisher,
	m *metrics.Metrics,
	baseURL string,
	logger *zap.Logger,
) EffectDispatcher {
	return &effectDispatcher{
		repo:      repo,
		directory: directory,
		mail:      mail,
		files:     files,
		publisher: publisher,
		metrics:   m,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

func (d *effectDispatcher) Dispatch(ctx context.Context, c Committed) {
	// 调用方的请求上下文可能已结束，副作用仍需执行
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), effectTimeout)
	defer cancel()

	log := applogger.Ctx(ctx, d.logger).With(
		zap.String("workflow", string(c.Workflow)),
		zap.Uint("request_id", c.RequestID),
		zap.String("action", c.Action),
	)

	d.deleteFiles(ctx, log, c)
	d.completeTodos(ctx, log, c)
	d.createTodos(ctx, log, c)
	d.sendNotices(ctx, log, c)
	d.publish(ctx, log, c)

	d.metrics.ObserveTransition(string(c.Workflow), c.Action, string(c.From), string(c.To))
}

// ── 文件 ──

func (d *effectDispatcher) deleteFiles(ctx context.Context, log *zap.Logger, c Committed) {
	if d.files == nil {
		return
	}
	for _, id := range c.RemovedFiles {
		if err := d.files.Delete(ctx, id); err != nil {
			log.Warn("删除旧文档失败", zap.String("file_id", id), zap.Error(err))
			d.metrics.ObserveEffectFailure("delete_file")
		}
	}
}

// ── 待办 ──

func (d *effectDispatcher) completeTodos(ctx context.Context, log *zap.Logger, c Committed) {
	module := string(c.Workflow)
	for _, comp := range c.Effects.Completions {
		event := workflow.CompletionEvent(c.Workflow, comp.Stage, c.RequestID)
		n, err := d.repo.Todo.Complete(ctx, module, event, comp.AssignedTo)
		if err != nil {
			log.Warn("完成待办失败", zap.String("completion_event", event), zap.Error(err))
			d.metrics.ObserveEffectFailure("complete_todo")
			continue
		}
		log.Debug("待办已完成", zap.String("completion_event", event), zap.Int64("count", n))
	}
}

func (d *effectDispatcher) createTodos(ctx context.Context, log *zap.Logger, c Committed) {
	module := string(c.Workflow)
	link := d.link(c)

	var deadline *time.Time
	if c.DeadlineDays > 0 {
		t := d.now().AddDate(0, 0, c.DeadlineDays)
		deadline = &t
	}

	for _, cr := range c.Effects.Creations {
		event := workflow.CompletionEvent(c.Workflow, cr.Stage, c.RequestID)
		recipients, err := d.directory.Resolve(ctx, cr.Audience)
		if err != nil {
			log.Warn("解析待办接收人失败", zap.String("completion_event", event), zap.Error(err))
			d.metrics.ObserveEffectFailure("resolve_audience")
			continue
		}
		if len(recipients) == 0 {
			log.Warn("待办无接收人", zap.String("completion_event", event), zap.String("permission", cr.Audience.Permission))
			continue
		}

		title := fmt.Sprintf("%s #%d: %s", workflowTitle(c.Workflow), c.RequestID, stagePhrase(cr.Stage))
		todos := make([]model.Todo, 0, len(recipients))
		for _, r := range recipients {
			todos = append(todos, model.Todo{
				Module:          module,
				CompletionEvent: event,
				AssignedTo:      r,
				Title:           title,
				Description:     fmt.Sprintf("Status: %s", cr.Status),
				Link:            link,
				Deadline:        deadline,
			})
		}
		if err := d.repo.Todo.CreateIgnoreDuplicates(ctx, todos); err != nil {
			log.Warn("创建待办失败", zap.String("completion_event", event), zap.Error(err))
			d.metrics.ObserveEffectFailure("create_todo")
			continue
		}

		if !cr.Notify {
			continue
		}
		body, err := renderMail(mailData{
			Heading: title,
			Lines:   []string{fmt.Sprintf("A %s is waiting for your action.", workflowTitle(c.Workflow))},
			Link:    link,
		})
		if err != nil {
			log.Warn("渲染邮件失败", zap.Error(err))
			d.metrics.ObserveEffectFailure("render_mail")
			continue
		}
		for _, r := range recipients {
			d.send(ctx, log, mailer.Message{To: []string{r}, Subject: title, HTML: body})
		}
	}
}

// ── 通知 ──

func (d *effectDispatcher) sendNotices(ctx context.Context, log *zap.Logger, c Committed) {
	module := string(c.Workflow)
	link := d.link(c)

	for _, n := range c.Effects.Notices {
		recipients, err := d.directory.Resolve(ctx, n.Audience)
		if err != nil {
			log.Warn("解析通知接收人失败", zap.String("kind", string(n.Kind)), zap.Error(err))
			d.metrics.ObserveEffectFailure("resolve_audience")
			continue
		}
		if len(recipients) == 0 {
			continue
		}

		title := fmt.Sprintf("%s #%d %s", workflowTitle(c.Workflow), c.RequestID, noticePhrase(n.Kind))
		payload, err := json.Marshal(map[string]interface{}{
			"request_id": c.RequestID,
			"kind":       c.Kind,
			"from":       c.From,
			"to":         c.To,
			"actor":      c.Actor,
		})
		if err != nil {
			payload = nil
		}

		items := make([]model.Notification, 0, len(recipients))
		for _, r := range recipients {
			items = append(items, model.Notification{
				UserEmail: r,
				Module:    module,
				Kind:      string(n.Kind),
				Title:     title,
				Content:   n.Comments,
				Link:      link,
				Payload:   datatypes.JSON(payload),
			})
		}
		if err := d.repo.Notification.BatchCreate(ctx, items); err != nil {
			log.Warn("写入站内通知失败", zap.String("kind", string(n.Kind)), zap.Error(err))
			d.metrics.ObserveEffectFailure("notification")
		}

		lines := []string{fmt.Sprintf("The %s has been %s.", workflowTitle(c.Workflow), noticePhrase(n.Kind))}
		if n.Comments != "" {
			lines = append(lines, "Comments: "+n.Comments)
		}
		body, err := renderMail(mailData{Heading: title, Lines: lines, Link: link})
		if err != nil {
			log.Warn("渲染邮件失败", zap.Error(err))
			d.metrics.ObserveEffectFailure("render_mail")
			continue
		}
		d.send(ctx, log, mailer.Message{To: recipients, Subject: title, HTML: body})
	}
}

func (d *effectDispatcher) send(ctx context.Context, log *zap.Logger, msg mailer.Message) {
	if d.mail == nil {
		return
	}
	if err := d.mail.Send(ctx, msg); err != nil {
		log.Warn("发送邮件失败", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		d.metrics.ObserveEffectFailure("email")
	}
}

// ── 事件 ──

func (d *effectDispatcher) publish(ctx context.Context, log *zap.Logger, c Committed) {
	if d.publisher == nil {
		return
	}
	err := d.publisher.PublishTransition(ctx, events.Transition{
		Workflow:  string(c.Workflow),
		RequestID: c.RequestID,
		Action:    c.Action,
		Actor:     c.Actor,
		From:      string(c.From),
		To:        string(c.To),
		At:        d.now(),
		TraceID:   applogger.TraceID(ctx),
	})
	if err != nil {
		log.Warn("发布转移事件失败", zap.Error(err))
		d.metrics.ObserveEffectFailure("publish")
	}
}

func (d *effectDispatcher) link(c Committed) string {
	return fmt.Sprintf("%s/%ss/%d", d.baseURL, c.Workflow, c.RequestID)
}

// ── 邮件模板 ──

type mailData struct {
	Heading string
	Lines   []string
	Link    string
}

var mailTemplate = template.Must(template.New("mail").Parse(`<!DOCTYPE html>
<html><body>
<h3>{{.Heading}}</h3>
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .Link}}<p><a href="{{.Link}}">Open in IMS</a></p>{{end}}
</body></html>`))

func renderMail(data mailData) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func workflowTitle(name workflow.Name) string {
	switch name {
	case workflow.PhdRequest:
		return "PhD Request"
	case workflow.PhdProposal:
		return "PhD Proposal"
	}
	return string(name)
}

func stagePhrase(stage workflow.StageKey) string {
	switch stage {
	case workflow.StageStudentReview:
		return "documents required from student"
	case workflow.StageSupervisorReview:
		return "supervisor review"
	case workflow.StageDrcConvenerReview:
		return "DRC convener review"
	case workflow.StageDrcMemberReview:
		return "DRC member review"
	case workflow.StageDrcForwardHod:
		return "forward to HOD"
	case workflow.StageHodReview:
		return "HOD review"
	case workflow.StageResubmit:
		return "reverted, resubmission required"
	case workflow.StageEditApproval:
		return "edit request awaiting approval"
	}
	return string(stage)
}

func noticePhrase(kind workflow.NoticeKind) string {
	switch kind {
	case workflow.NoticeReverted:
		return "reverted"
	case workflow.NoticeCompleted:
		return "completed"
	case workflow.NoticeRejected:
		return "rejected"
	case workflow.NoticeDeleted:
		return "deleted"
	case workflow.NoticeEditApproved:
		return "edit request approved"
	case workflow.NoticeEditRejected:
		return "edit request rejected"
	}
	return string(kind)
}
