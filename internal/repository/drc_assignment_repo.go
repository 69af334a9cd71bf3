package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	pkgerrors "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/errors"
)

// DrcAssignmentRepository DRC 成员分配数据访问接口
type DrcAssignmentRepository interface {
	ListByRequest(ctx context.Context, requestID uint) ([]model.DrcAssignment, error)
	// ListForUpdate 行锁读取本轮分配，只能在事务内调用
	ListForUpdate(ctx context.Context, requestID uint) ([]model.DrcAssignment, error)
	// Replace 整体替换本轮成员（先删后插）
	Replace(ctx context.Context, requestID uint, members []string) error
	// Decide 记录成员决定；成员已决定时返回 Conflict
	Decide(ctx context.Context, requestID uint, member, status string) error
	CountPending(ctx context.Context, requestID uint) (int64, error)
}

type drcAssignmentRepo struct {
	db *gorm.DB
}

// NewDrcAssignmentRepo 创建 DrcAssignmentRepository 实例
func NewDrcAssignmentRepo(db *gorm.DB) DrcAssignmentRepository {
	return &drcAssignmentRepo{db: db}
}

func (r *drcAssignmentRepo) ListByRequest(ctx context.Context, requestID uint) ([]model.DrcAssignment, error) {
	var rows []model.DrcAssignment
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *drcAssignmentRepo) ListForUpdate(ctx context.Context, requestID uint) ([]model.DrcAssignment, error) {
	var rows []model.DrcAssignment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *drcAssignmentRepo) Replace(ctx context.Context, requestID uint, members []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("request_id = ?", requestID).Delete(&model.DrcAssignment{}).Error; err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	rows := make([]model.DrcAssignment, 0, len(members))
	for i, m := range members {
		rows = append(rows, model.DrcAssignment{
			RequestID:   requestID,
			MemberEmail: m,
			Position:    i + 1,
			Status:      "pending",
		})
	}
	return db.Create(&rows).Error
}

func (r *drcAssignmentRepo) Decide(ctx context.Context, requestID uint, member, status string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.DrcAssignment{}).
		Where("request_id = ? AND member_email = ? AND status = ?", requestID, member, "pending").
		Updates(map[string]interface{}{
			"status":     status,
			"decided_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Conflict("成员 %s 已提交过本轮评审", member)
	}
	return nil
}

func (r *drcAssignmentRepo) CountPending(ctx context.Context, requestID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.DrcAssignment{}).
		Where("request_id = ? AND status = ?", requestID, "pending").
		Count(&n).Error
	return n, err
}
