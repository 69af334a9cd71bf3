package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
)

// SystemConfigRepository 系统配置数据访问接口
// system_config 只有一行（singleton=true），由迁移脚本写入
type SystemConfigRepository interface {
	Get(ctx context.Context) (*model.SystemConfig, error)
	Update(ctx context.Context, cfg *model.SystemConfig) error
}

type systemConfigRepo struct {
	db *gorm.DB
}

// NewSystemConfigRepo 创建 SystemConfigRepository 实例
func NewSystemConfigRepo(db *gorm.DB) SystemConfigRepository {
	return &systemConfigRepo{db: db}
}

func (r *systemConfigRepo) Get(ctx context.Context) (*model.SystemConfig, error) {
	var cfg model.SystemConfig
	err := r.db.WithContext(ctx).Where("singleton = ?", true).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Update 只更新可调整的开关，行不存在时返回 gorm.ErrRecordNotFound
func (r *systemConfigRepo) Update(ctx context.Context, cfg *model.SystemConfig) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.SystemConfig{}).
		Where("singleton = ?", true).
		Updates(map[string]interface{}{
			"direct_flow":        cfg.DirectFlow,
			"todo_deadline_days": cfg.TodoDeadlineDays,
			"updated_by":         cfg.UpdatedBy,
			"updated_at":         now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cfg.UpdatedAt = now
	return nil
}
