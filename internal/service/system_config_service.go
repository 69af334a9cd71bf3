package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/config"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/dto"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
)

// ── 系统配置模块业务错误 ──

var (
	ErrSystemConfigNotFound = errors.New("系统配置未初始化")
)

// WorkflowSettings 运行期可调的流程开关
type WorkflowSettings struct {
	DirectFlow       bool
	TodoDeadlineDays int
}

// SystemConfigService 系统配置业务接口
type SystemConfigService interface {
	Get(ctx context.Context) (*dto.SystemConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerEmail string) (*dto.SystemConfigResponse, error)
	// Settings 读取流程开关；表中无记录时回退到配置文件默认值
	Settings(ctx context.Context) WorkflowSettings
}

type systemConfigService struct {
	repo     *repository.Repository
	defaults config.WorkflowConfig
	logger   *zap.Logger
}

// NewSystemConfigService 创建 SystemConfigService 实例
func NewSystemConfigService(repo *repository.Repository, defaults config.WorkflowConfig, logger *zap.Logger) SystemConfigService {
	return &systemConfigService{repo: repo, defaults: defaults, logger: logger}
}

// ────────────────────── Get ──────────────────────

func (s *systemConfigService) Get(ctx context.Context) (*dto.SystemConfigResponse, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return toSystemConfigResponse(cfg), nil
}

// ────────────────────── Update ──────────────────────

func (s *systemConfigService) Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerEmail string) (*dto.SystemConfigResponse, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if req.DirectFlow != nil {
		cfg.DirectFlow = *req.DirectFlow
	}
	if req.TodoDeadlineDays != nil {
		cfg.TodoDeadlineDays = *req.TodoDeadlineDays
	}

	cfg.UpdatedBy = &callerEmail

	if err := s.repo.SystemConfig.Update(ctx, cfg); err != nil {
		s.logger.Error("更新系统配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("系统配置已更新",
		zap.String("by", callerEmail),
		zap.Bool("direct_flow", cfg.DirectFlow),
		zap.Int("todo_deadline_days", cfg.TodoDeadlineDays),
	)
	return toSystemConfigResponse(cfg), nil
}

// ────────────────────── Settings ──────────────────────

func (s *systemConfigService) Settings(ctx context.Context) WorkflowSettings {
	settings := WorkflowSettings{
		DirectFlow:       s.defaults.DirectFlow,
		TodoDeadlineDays: s.defaults.TodoDeadlineDays,
	}
	cfg, err := s.load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSystemConfigNotFound) {
			s.logger.Warn("读取系统配置失败，使用默认值", zap.Error(err))
		}
		return settings
	}
	settings.DirectFlow = cfg.DirectFlow
	if cfg.TodoDeadlineDays > 0 {
		settings.TodoDeadlineDays = cfg.TodoDeadlineDays
	}
	return settings
}

func (s *systemConfigService) load(ctx context.Context) (*model.SystemConfig, error) {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemConfigNotFound
		}
		s.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

func toSystemConfigResponse(cfg *model.SystemConfig) *dto.SystemConfigResponse {
	return &dto.SystemConfigResponse{
		DirectFlow:       cfg.DirectFlow,
		TodoDeadlineDays: cfg.TodoDeadlineDays,
		UpdatedAt:        cfg.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
