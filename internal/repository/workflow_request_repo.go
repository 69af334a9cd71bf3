package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	pkgerrors "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/errors"
)

// WorkflowRequestRepository 申请聚合数据访问接口
type WorkflowRequestRepository interface {
	Create(ctx context.Context, req *model.WorkflowRequest) error
	GetByID(ctx context.Context, workflow string, id uint) (*model.WorkflowRequest, error)
	// GetForUpdate 行锁读取，只能在事务内调用
	GetForUpdate(ctx context.Context, workflow string, id uint) (*model.WorkflowRequest, error)
	UpdateState(ctx context.Context, req *model.WorkflowRequest) error
	ListByParty(ctx context.Context, workflow, email string, offset, limit int) ([]model.WorkflowRequest, int64, error)
	ListByStatus(ctx context.Context, workflow string, statuses []string, offset, limit int) ([]model.WorkflowRequest, int64, error)
	ListByDrcMember(ctx context.Context, workflow, email string, offset, limit int) ([]model.WorkflowRequest, int64, error)
}

type workflowRequestRepo struct {
	db *gorm.DB
}

// NewWorkflowRequestRepo 创建 WorkflowRequestRepository 实例
func NewWorkflowRequestRepo(db *gorm.DB) WorkflowRequestRepository {
	return &workflowRequestRepo{db: db}
}

func (r *workflowRequestRepo) Create(ctx context.Context, req *model.WorkflowRequest) error {
	return r.db.WithContext(ctx).Omit("Documents").Create(req).Error
}

func (r *workflowRequestRepo) GetByID(ctx context.Context, workflow string, id uint) (*model.WorkflowRequest, error) {
	var req model.WorkflowRequest
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND workflow = ?", id, workflow).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *workflowRequestRepo) GetForUpdate(ctx context.Context, workflow string, id uint) (*model.WorkflowRequest, error) {
	var req model.WorkflowRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND workflow = ?", id, workflow).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *workflowRequestRepo) UpdateState(ctx context.Context, req *model.WorkflowRequest) error {
	oldVersion := req.Version
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.WorkflowRequest{}).
		Where("id = ? AND version = ?", req.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":                     req.Status,
			"status_before_edit_request": req.StatusBeforeEditRequest,
			"edit_request_type":          req.EditRequestType,
			"comments":                   req.Comments,
			"updated_by":                 req.UpdatedBy,
			"updated_at":                 now,
			"version":                    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version = oldVersion + 1
	req.UpdatedAt = now
	return nil
}

func (r *workflowRequestRepo) ListByParty(ctx context.Context, workflow, email string, offset, limit int) ([]model.WorkflowRequest, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.WorkflowRequest{}).
		Where("workflow = ? AND (student_email = ? OR supervisor_email = ?)", workflow, email, email)
	return r.page(db, offset, limit)
}

func (r *workflowRequestRepo) ListByStatus(ctx context.Context, workflow string, statuses []string, offset, limit int) ([]model.WorkflowRequest, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.WorkflowRequest{}).
		Where("workflow = ? AND status IN ?", workflow, statuses)
	return r.page(db, offset, limit)
}

func (r *workflowRequestRepo) ListByDrcMember(ctx context.Context, workflow, email string, offset, limit int) ([]model.WorkflowRequest, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.WorkflowRequest{}).
		Where("workflow = ?", workflow).
		Where("id IN (?)", r.db.Model(&model.DrcAssignment{}).Select("request_id").Where("member_email = ?", email))
	return r.page(db, offset, limit)
}

func (r *workflowRequestRepo) page(db *gorm.DB, offset, limit int) ([]model.WorkflowRequest, int64, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []model.WorkflowRequest
	if err := db.Offset(offset).Limit(limit).
		Order("updated_at DESC, id DESC").
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}
