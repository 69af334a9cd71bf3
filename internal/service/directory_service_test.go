package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
)

const convenerPerm = "phd-request:drc-convener"

func setupTestDirectory(t *testing.T) (DirectoryService, *mockPermissionCache) {
	t.Helper()
	repo := newMockRepository(newMockStore())
	ctx := context.Background()
	_ = repo.User.GrantPermission(ctx, convEmail, convenerPerm)
	_ = repo.User.GrantPermission(ctx, "conv2@bphc.edu", convenerPerm)

	cache := newMockPermissionCache()
	return NewDirectoryService(repo, cache, time.Minute, zap.NewNop()), cache
}

func TestDirectoryService_UsersWithPermission_Cache(t *testing.T) {
	dir, cache := setupTestDirectory(t)
	ctx := context.Background()

	first, err := dir.UsersWithPermission(ctx, convenerPerm)
	if err != nil {
		t.Fatalf("查询应成功: %v", err)
	}
	if len(first) != 2 || cache.hits != 0 {
		t.Fatalf("首次查询应查库并写缓存，实际 %v / hits=%d", first, cache.hits)
	}
	if _, ok := cache.entries[convenerPerm]; !ok {
		t.Error("查库后应写入缓存")
	}

	second, _ := dir.UsersWithPermission(ctx, convenerPerm)
	if len(second) != 2 || cache.hits != 1 {
		t.Errorf("第二次应命中缓存，实际 %v / hits=%d", second, cache.hits)
	}
}

func TestDirectoryService_GrantInvalidatesCache(t *testing.T) {
	dir, cache := setupTestDirectory(t)
	ctx := context.Background()
	_, _ = dir.UsersWithPermission(ctx, convenerPerm)

	if err := dir.Grant(ctx, " New@BPHC.edu ", convenerPerm); err != nil {
		t.Fatalf("Grant 应成功: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != convenerPerm {
		t.Errorf("授权后应清除缓存，实际 %v", cache.invalidated)
	}

	users, _ := dir.UsersWithPermission(ctx, convenerPerm)
	if len(users) != 3 || users[2] != "new@bphc.edu" {
		t.Errorf("应读到新授权用户（邮箱归一化），实际 %v", users)
	}

	if err := dir.Revoke(ctx, "new@bphc.edu", convenerPerm); err != nil {
		t.Fatalf("Revoke 应成功: %v", err)
	}
	users, _ = dir.UsersWithPermission(ctx, convenerPerm)
	if len(users) != 2 {
		t.Errorf("撤销后应恢复为 2 人，实际 %v", users)
	}
}

func TestDirectoryService_CacheErrorFallsBack(t *testing.T) {
	dir, cache := setupTestDirectory(t)
	cache.getErr = errors.New("redis down")

	users, err := dir.UsersWithPermission(context.Background(), convenerPerm)
	if err != nil {
		t.Fatalf("缓存故障应降级查库: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("期望 2 人，实际 %v", users)
	}
}

func TestDirectoryService_Resolve(t *testing.T) {
	dir, _ := setupTestDirectory(t)

	got, err := dir.Resolve(context.Background(), workflow.Audience{
		Emails:     []string{" Sup@bphc.edu", convEmail, ""},
		Permission: convenerPerm,
	})
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	want := []string{"conv2@bphc.edu", convEmail, supEmail}
	if len(got) != len(want) {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("第 %d 项期望 %s，实际 %s", i, want[i], got[i])
		}
	}
}

func TestDirectoryService_Names(t *testing.T) {
	repo := newMockRepository(newMockStore())
	dir := NewDirectoryService(repo, nil, 0, zap.NewNop())
	ctx := context.Background()
	_ = dir.Upsert(ctx, "HOD@bphc.edu", "Prof. Menon", "faculty")
	_ = dir.Upsert(ctx, "anon@bphc.edu", "", "staff")

	names, err := dir.Names(ctx, []string{hodEmail, "anon@bphc.edu", "missing@bphc.edu"})
	if err != nil {
		t.Fatalf("Names 应成功: %v", err)
	}
	if len(names) != 1 || names[hodEmail] != "Prof. Menon" {
		t.Errorf("只返回有姓名的用户，实际 %v", names)
	}
}
