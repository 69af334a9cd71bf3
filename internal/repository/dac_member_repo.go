package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
)

// DacMemberRepository DAC 提名数据访问接口
type DacMemberRepository interface {
	ListByRequest(ctx context.Context, requestID uint) ([]model.DacMember, error)
	Replace(ctx context.Context, requestID uint, members []string) error
}

type dacMemberRepo struct {
	db *gorm.DB
}

// NewDacMemberRepo 创建 DacMemberRepository 实例
func NewDacMemberRepo(db *gorm.DB) DacMemberRepository {
	return &dacMemberRepo{db: db}
}

func (r *dacMemberRepo) ListByRequest(ctx context.Context, requestID uint) ([]model.DacMember, error) {
	var rows []model.DacMember
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *dacMemberRepo) Replace(ctx context.Context, requestID uint, members []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("request_id = ?", requestID).Delete(&model.DacMember{}).Error; err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	rows := make([]model.DacMember, 0, len(members))
	for i, m := range members {
		rows = append(rows, model.DacMember{RequestID: requestID, MemberEmail: m, Position: i + 1})
	}
	return db.Create(&rows).Error
}
