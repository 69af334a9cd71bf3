package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/dto"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
)

// NotificationService 站内通知业务接口
type NotificationService interface {
	List(ctx context.Context, email string, req *dto.ListNotificationRequest) ([]dto.NotificationResponse, int64, error)
	// MarkRead 只会标记属于 email 的通知
	MarkRead(ctx context.Context, email string, req *dto.MarkNotificationsReadRequest) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, email string, req *dto.ListNotificationRequest) ([]dto.NotificationResponse, int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	items, total, err := s.repo.Notification.ListByUser(ctx, email, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("email", email), zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		list = append(list, dto.NotificationResponse{
			ID:        n.ID,
			Module:    n.Module,
			Kind:      n.Kind,
			Title:     n.Title,
			Content:   n.Content,
			Link:      n.Link,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(timeLayout),
		})
	}
	return list, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, email string, req *dto.MarkNotificationsReadRequest) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.repo.Notification.MarkRead(ctx, email, req.IDs); err != nil {
		s.logger.Error("标记通知已读失败", zap.String("email", email), zap.Error(err))
		return err
	}
	return nil
}
