package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
)

// ReviewRepository 评审台账数据访问接口
// 台账只追加：不提供更新与删除
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	ListByRequest(ctx context.Context, requestID uint) ([]model.Review, error)
}

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepo 创建 ReviewRepository 实例
func NewReviewRepo(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Omit("Reviewer").Create(review).Error
}

func (r *reviewRepo) ListByRequest(ctx context.Context, requestID uint) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&reviews).Error
	return reviews, err
}
