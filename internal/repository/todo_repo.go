package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
)

// TodoRepository 待办数据访问接口
type TodoRepository interface {
	// CreateIgnoreDuplicates 批量创建；已存在的未完成待办保持不变
	CreateIgnoreDuplicates(ctx context.Context, todos []model.Todo) error
	// Complete 完成匹配的未完成待办，assignee 为空时匹配所有人；无匹配时不报错
	Complete(ctx context.Context, module, completionEvent, assignee string) (int64, error)
	ListPending(ctx context.Context, assignee string) ([]model.Todo, error)
}

type todoRepo struct {
	db *gorm.DB
}

// NewTodoRepo 创建 TodoRepository 实例
func NewTodoRepo(db *gorm.DB) TodoRepository {
	return &todoRepo{db: db}
}

func (r *todoRepo) CreateIgnoreDuplicates(ctx context.Context, todos []model.Todo) error {
	if len(todos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "module"}, {Name: "completion_event"}, {Name: "assigned_to"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "completed"}, Value: false}}},
			DoNothing:   true,
		}).
		Create(&todos).Error
}

func (r *todoRepo) Complete(ctx context.Context, module, completionEvent, assignee string) (int64, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Todo{}).
		Where("module = ? AND completion_event = ? AND completed = ?", module, completionEvent, false)
	if assignee != "" {
		db = db.Where("assigned_to = ?", assignee)
	}
	result := db.Updates(map[string]interface{}{
		"completed":    true,
		"completed_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

func (r *todoRepo) ListPending(ctx context.Context, assignee string) ([]model.Todo, error) {
	var todos []model.Todo
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND completed = ?", assignee, false).
		Order("deadline ASC NULLS LAST, id ASC").
		Find(&todos).Error
	return todos, err
}
