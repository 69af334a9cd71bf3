package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
)

// DocumentRepository 证明文件引用数据访问接口
type DocumentRepository interface {
	ListByRequest(ctx context.Context, requestID uint) ([]model.Document, error)
	BatchCreate(ctx context.Context, docs []model.Document) error
	DeleteByRequest(ctx context.Context, requestID uint) error
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo 创建 DocumentRepository 实例
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) ListByRequest(ctx context.Context, requestID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id ASC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepo) BatchCreate(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&docs).Error
}

func (r *documentRepo) DeleteByRequest(ctx context.Context, requestID uint) error {
	// 仅删除引用行，文件由调用方在提交后删除
	return r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Delete(&model.Document{}).Error
}
