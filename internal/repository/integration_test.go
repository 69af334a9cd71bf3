//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/model"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/database"
	pkgerrors "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=ims password=ims_password dbname=ims_test sslmode=disable TimeZone=Asia/Kolkata"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用正式迁移建表（待办的部分唯一索引只在迁移脚本中定义）
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// createTestRequest 创建一条申请并返回清理函数
func createTestRequest(t *testing.T, repo *repository.Repository) (*model.WorkflowRequest, func()) {
	t.Helper()
	suffix := time.Now().UnixNano()
	req := &model.WorkflowRequest{
		Workflow:        "phd-request",
		Kind:            "pre_submission",
		StudentEmail:    fmt.Sprintf("stu%d@bphc.edu", suffix),
		SupervisorEmail: fmt.Sprintf("sup%d@bphc.edu", suffix),
		Status:          "drc_convener_review",
	}
	if err := repo.Request.Create(context.Background(), req); err != nil {
		t.Fatalf("创建申请失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("request_id = ?", req.ID).Delete(&model.DrcAssignment{})
		testDB.Where("request_id = ?", req.ID).Delete(&model.Document{})
		testDB.Where("id = ?", req.ID).Delete(&model.WorkflowRequest{})
	}
	return req, cleanup
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	req, cleanup := createTestRequest(t, repo)
	defer cleanup()
	ctx := context.Background()

	wantErr := errors.New("回滚")
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		row, err := tx.Request.GetForUpdate(ctx, "phd-request", req.ID)
		if err != nil {
			return err
		}
		row.Status = "drc_member_review"
		if err := tx.Request.UpdateState(ctx, row); err != nil {
			return err
		}
		if err := tx.DrcAssignment.Replace(ctx, req.ID, []string{"a@bphc.edu"}); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("期望事务返回回滚错误，实际: %v", err)
	}

	found, err := repo.Request.GetByID(ctx, "phd-request", req.ID)
	if err != nil {
		t.Fatalf("查询申请失败: %v", err)
	}
	if found.Status != "drc_convener_review" || found.Version != req.Version {
		t.Errorf("回滚后状态应不变，实际 status=%s version=%d", found.Status, found.Version)
	}
	rows, _ := repo.DrcAssignment.ListByRequest(ctx, req.ID)
	if len(rows) != 0 {
		t.Errorf("回滚后不应有成员分配，实际 %d", len(rows))
	}
}

func TestTransaction_Commit(t *testing.T) {
	repo := repository.NewRepository(testDB)
	req, cleanup := createTestRequest(t, repo)
	defer cleanup()
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Document.BatchCreate(ctx, []model.Document{
			{RequestID: req.ID, FileID: "f-1", FileName: "draft.pdf", DocumentType: "thesis", UploadedByEmail: req.SupervisorEmail},
		})
	})
	if err != nil {
		t.Fatalf("事务应成功: %v", err)
	}

	found, err := repo.Request.GetByID(ctx, "phd-request", req.ID)
	if err != nil {
		t.Fatalf("查询申请失败: %v", err)
	}
	if len(found.Documents) != 1 || found.Documents[0].FileID != "f-1" {
		t.Errorf("提交后应预加载 1 份文档，实际 %+v", found.Documents)
	}
}

func TestRequest_GetByID_WrongWorkflow(t *testing.T) {
	repo := repository.NewRepository(testDB)
	req, cleanup := createTestRequest(t, repo)
	defer cleanup()

	_, err := repo.Request.GetByID(context.Background(), "phd-proposal", req.ID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("跨流程查询应返回 ErrRecordNotFound，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Request_ConflictDetected(t *testing.T) {
	repo := repository.NewRepository(testDB)
	req, cleanup := createTestRequest(t, repo)
	defer cleanup()
	ctx := context.Background()

	// 模拟并发：获取两份副本
	copy1, _ := repo.Request.GetByID(ctx, "phd-request", req.ID)
	copy2, _ := repo.Request.GetByID(ctx, "phd-request", req.ID)

	// 第一次更新成功
	copy1.Status = "drc_member_review"
	if err := repo.Request.UpdateState(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if copy1.Version != req.Version+1 {
		t.Errorf("版本号应递增，实际 %d", copy1.Version)
	}

	// 第二次更新应失败（version 已过期）
	copy2.Status = "reverted_by_drc_convener"
	err := repo.Request.UpdateState(ctx, copy2)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}

	found, _ := repo.Request.GetByID(ctx, "phd-request", req.ID)
	if found.Status != "drc_member_review" {
		t.Errorf("第二次更新不应生效，实际 status=%s", found.Status)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: DRC Assignment
// ═══════════════════════════════════════════════════════════

func TestDrcAssignment_DecideOnce(t *testing.T) {
	repo := repository.NewRepository(testDB)
	req, cleanup := createTestRequest(t, repo)
	defer cleanup()
	ctx := context.Background()

	if err := repo.DrcAssignment.Replace(ctx, req.ID, []string{"a@bphc.edu", "b@bphc.edu"}); err != nil {
		t.Fatalf("分配成员失败: %v", err)
	}
	if n, _ := repo.DrcAssignment.CountPending(ctx, req.ID); n != 2 {
		t.Fatalf("期望 2 人待评审，实际 %d", n)
	}

	if err := repo.DrcAssignment.Decide(ctx, req.ID, "a@bphc.edu", "approved"); err != nil {
		t.Fatalf("首次评审应成功: %v", err)
	}
	err := repo.DrcAssignment.Decide(ctx, req.ID, "a@bphc.edu", "reverted")
	if pkgerrors.KindOf(err) != pkgerrors.KindConflict {
		t.Errorf("重复评审应返回 conflict，实际: %v", err)
	}
	if n, _ := repo.DrcAssignment.CountPending(ctx, req.ID); n != 1 {
		t.Errorf("期望剩余 1 人待评审，实际 %d", n)
	}

	// 重新分配清空上一轮
	if err := repo.DrcAssignment.Replace(ctx, req.ID, []string{"c@bphc.edu"}); err != nil {
		t.Fatalf("重新分配失败: %v", err)
	}
	rows, _ := repo.DrcAssignment.ListByRequest(ctx, req.ID)
	if len(rows) != 1 || rows[0].MemberEmail != "c@bphc.edu" || rows[0].Position != 1 || rows[0].Status != "pending" {
		t.Errorf("重新分配后应只剩本轮成员，实际 %+v", rows)
	}

	ids, _, err := repo.Request.ListByDrcMember(ctx, "phd-request", "c@bphc.edu", 0, 10)
	if err != nil || len(ids) != 1 || ids[0].ID != req.ID {
		t.Errorf("按成员查询应返回该申请，实际 %v / %v", ids, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Todo
// ═══════════════════════════════════════════════════════════

func TestTodo_CreateIgnoreDuplicates(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	event := fmt.Sprintf("phd-request:hod-review:%d", time.Now().UnixNano())
	defer testDB.Where("completion_event = ?", event).Delete(&model.Todo{})

	newTodo := func() model.Todo {
		return model.Todo{
			Module:          "phd-request",
			CompletionEvent: event,
			AssignedTo:      "hod@bphc.edu",
			Title:           "PhD Request: HOD review",
			Link:            "https://ims.test/phd-requests/1",
		}
	}

	if err := repo.Todo.CreateIgnoreDuplicates(ctx, []model.Todo{newTodo()}); err != nil {
		t.Fatalf("创建待办失败: %v", err)
	}
	if err := repo.Todo.CreateIgnoreDuplicates(ctx, []model.Todo{newTodo()}); err != nil {
		t.Fatalf("重复创建应被忽略: %v", err)
	}

	var count int64
	testDB.Model(&model.Todo{}).Where("completion_event = ?", event).Count(&count)
	if count != 1 {
		t.Fatalf("未完成待办应唯一，实际 %d", count)
	}

	n, err := repo.Todo.Complete(ctx, "phd-request", event, "")
	if err != nil || n != 1 {
		t.Fatalf("完成待办失败: n=%d err=%v", n, err)
	}

	// 已完成的待办不阻止再次创建
	if err := repo.Todo.CreateIgnoreDuplicates(ctx, []model.Todo{newTodo()}); err != nil {
		t.Fatalf("再次创建失败: %v", err)
	}
	testDB.Model(&model.Todo{}).Where("completion_event = ?", event).Count(&count)
	if count != 2 {
		t.Errorf("期望 2 条记录（1 条已完成），实际 %d", count)
	}
}
