package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
)

// PermissionCache 权限目录缓存（由 pkg/redis.Client 实现）
type PermissionCache interface {
	GetPermissionUsers(ctx context.Context, permission string) ([]string, bool, error)
	SetPermissionUsers(ctx context.Context, permission string, emails []string, ttl time.Duration) error
	InvalidatePermission(ctx context.Context, permission string) error
}

// DirectoryService 用户目录：按权限解析收件人、查询姓名
type DirectoryService interface {
	UsersWithPermission(ctx context.Context, permission string) ([]string, error)
	// Resolve 将待办 / 通知的接收方展开为邮箱列表（去重、有序）
	Resolve(ctx context.Context, aud workflow.Audience) ([]string, error)
	Names(ctx context.Context, emails []string) (map[string]string, error)
	Upsert(ctx context.Context, email, name, userType string) error
	Grant(ctx context.Context, email, permission string) error
	Revoke(ctx context.Context, email, permission string) error
}

type directoryService struct {
	repo   *repository.Repository
	cache  PermissionCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewDirectoryService 创建 DirectoryService；cache 可为 nil
func NewDirectoryService(repo *repository.Repository, cache PermissionCache, ttl time.Duration, logger *zap.Logger) DirectoryService {
	return &directoryService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func (s *directoryService) UsersWithPermission(ctx context.Context, permission string) ([]string, error) {
	if s.cache != nil {
		emails, ok, err := s.cache.GetPermissionUsers(ctx, permission)
		if err != nil {
			// 缓存故障降级查库
			s.logger.Warn("读取权限缓存失败", zap.String("permission", permission), zap.Error(err))
		} else if ok {
			return emails, nil
		}
	}

	emails, err := s.repo.User.ListEmailsWithPermission(ctx, permission)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetPermissionUsers(ctx, permission, emails, s.ttl); err != nil {
			s.logger.Warn("写入权限缓存失败", zap.String("permission", permission), zap.Error(err))
		}
	}
	return emails, nil
}

func (s *directoryService) Resolve(ctx context.Context, aud workflow.Audience) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(email string) {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || seen[email] {
			return
		}
		seen[email] = true
		out = append(out, email)
	}

	for _, e := range aud.Emails {
		add(e)
	}
	if aud.Permission != "" {
		emails, err := s.UsersWithPermission(ctx, aud.Permission)
		if err != nil {
			return nil, err
		}
		for _, e := range emails {
			add(e)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *directoryService) Names(ctx context.Context, emails []string) (map[string]string, error) {
	users, err := s.repo.User.ListByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		if u.Name != "" {
			names[u.Email] = u.Name
		}
	}
	return names, nil
}

func (s *directoryService) Upsert(ctx context.Context, email, name, userType string) error {
	return s.repo.User.Upsert(ctx, &model.User{
		Email: strings.ToLower(strings.TrimSpace(email)),
		Name:  name,
		Type:  userType,
	})
}

func (s *directoryService) Grant(ctx context.Context, email, permission string) error {
	if err := s.repo.User.GrantPermission(ctx, strings.ToLower(strings.TrimSpace(email)), permission); err != nil {
		return err
	}
	s.invalidate(ctx, permission)
	return nil
}

func (s *directoryService) Revoke(ctx context.Context, email, permission string) error {
	if err := s.repo.User.RevokePermission(ctx, strings.ToLower(strings.TrimSpace(email)), permission); err != nil {
		return err
	}
	s.invalidate(ctx, permission)
	return nil
}

func (s *directoryService) invalidate(ctx context.Context, permission string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePermission(ctx, permission); err != nil {
		s.logger.Warn("清除权限缓存失败", zap.String("permission", permission), zap.Error(err))
	}
}
