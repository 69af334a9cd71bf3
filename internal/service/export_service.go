package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
)

// ── 导出模块业务错误 ──

var (
	ErrExportUnknownWorkflow = errors.New("未知的审批流程")
	ErrExportGenerateFail    = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出单个申请的评审台账为 Excel (.xlsx)
//   - 内容与详情接口一致（经过同样的可见性处理），学生导出时同样隐藏 DRC 成员身份
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportLedger 导出评审台账，返回内容与建议文件名
	ExportLedger(ctx context.Context, name workflow.Name, actor workflow.Actor, id uint) (*bytes.Buffer, string, error)
}

type exportService struct {
	workflows map[workflow.Name]WorkflowService
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(workflows []WorkflowService, logger *zap.Logger) ExportService {
	m := make(map[workflow.Name]WorkflowService, len(workflows))
	for _, w := range workflows {
		m[w.Name()] = w
	}
	return &exportService{workflows: m, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportLedger 导出评审台账
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Summary"：申请基本信息与当前状态
//   - Sheet "Ledger"：按时间排序的评审记录（展示标签 / 结论 / 意见 / 评审时状态 / 时间）
//   - Sheet "Documents"：可见的证明文件

func (s *exportService) ExportLedger(ctx context.Context, name workflow.Name, actor workflow.Actor, id uint) (*bytes.Buffer, string, error) {
	svc, ok := s.workflows[name]
	if !ok {
		return nil, "", ErrExportUnknownWorkflow
	}

	detail, err := svc.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#999999", Style: 1},
			{Type: "top", Color: "#999999", Style: 1},
			{Type: "right", Color: "#999999", Style: 1},
			{Type: "bottom", Color: "#999999", Style: 1},
		},
	})
	if err != nil {
		s.logger.Error("创建表头样式失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		s.logger.Error("创建单元格样式失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	// ── Summary ──
	const summary = "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, "", s.fail(err)
	}
	_ = f.SetColWidth(summary, "A", "A", 22)
	_ = f.SetColWidth(summary, "B", "B", 40)
	rows := [][2]string{
		{"Workflow", workflowTitle(name)},
		{"ID", fmt.Sprintf("%d", detail.ID)},
		{"Kind", detail.Kind},
		{"Student", detail.StudentEmail},
		{"Supervisor", detail.SupervisorEmail},
		{"Status", detail.Status},
		{"Comments", detail.Comments},
		{"Created At", detail.CreatedAt},
		{"Updated At", detail.UpdatedAt},
	}
	for i, r := range rows {
		_ = f.SetCellValue(summary, cell(1, i+1), r[0])
		_ = f.SetCellValue(summary, cell(2, i+1), r[1])
		_ = f.SetCellStyle(summary, cell(1, i+1), cell(1, i+1), headerStyle)
	}

	// ── Ledger ──
	const ledger = "Ledger"
	if _, err := f.NewSheet(ledger); err != nil {
		return nil, "", s.fail(err)
	}
	ledgerHeaders := []string{"#", "Reviewer", "Email", "Decision", "Comments", "Status At Review", "Reviewed At"}
	widths := []float64{6, 28, 30, 12, 50, 24, 22}
	for i, h := range ledgerHeaders {
		_ = f.SetCellValue(ledger, cell(i+1, 1), h)
		_ = f.SetColWidth(ledger, colName(i+1), colName(i+1), widths[i])
	}
	_ = f.SetCellStyle(ledger, cell(1, 1), cell(len(ledgerHeaders), 1), headerStyle)
	for i, l := range detail.Ledger {
		row := i + 2
		decision := "Approved"
		if !l.Approved {
			decision = "Not approved"
		}
		_ = f.SetCellValue(ledger, cell(1, row), i+1)
		_ = f.SetCellValue(ledger, cell(2, row), l.Label)
		_ = f.SetCellValue(ledger, cell(3, row), l.ReviewerEmail)
		_ = f.SetCellValue(ledger, cell(4, row), decision)
		_ = f.SetCellValue(ledger, cell(5, row), l.Comments)
		_ = f.SetCellValue(ledger, cell(6, row), l.StatusAtReview)
		_ = f.SetCellValue(ledger, cell(7, row), l.CreatedAt)
		_ = f.SetCellStyle(ledger, cell(5, row), cell(5, row), wrapStyle)
	}

	// ── Documents ──
	const documents = "Documents"
	if _, err := f.NewSheet(documents); err != nil {
		return nil, "", s.fail(err)
	}
	docHeaders := []string{"File", "Type", "Private", "Uploaded By", "Uploaded At"}
	for i, h := range docHeaders {
		_ = f.SetCellValue(documents, cell(i+1, 1), h)
		_ = f.SetColWidth(documents, colName(i+1), colName(i+1), 26)
	}
	_ = f.SetCellStyle(documents, cell(1, 1), cell(len(docHeaders), 1), headerStyle)
	for i, d := range detail.Documents {
		row := i + 2
		_ = f.SetCellValue(documents, cell(1, row), d.FileName)
		_ = f.SetCellValue(documents, cell(2, row), d.DocumentType)
		_ = f.SetCellValue(documents, cell(3, row), d.IsPrivate)
		_ = f.SetCellValue(documents, cell(4, row), d.UploadedByEmail)
		_ = f.SetCellValue(documents, cell(5, row), d.CreatedAt)
	}

	// 删除默认 Sheet
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(ledger); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", s.fail(err)
	}

	filename := fmt.Sprintf("%s-%d-ledger.xlsx", name, id)
	s.logger.Info("评审台账导出成功",
		zap.String("workflow", string(name)),
		zap.Uint("request_id", id),
		zap.Int("reviews", len(detail.Ledger)),
	)
	return buf, filename, nil
}

func (s *exportService) fail(err error) error {
	s.logger.Error("生成 Excel 失败", zap.Error(err))
	return ErrExportGenerateFail
}

// colName 列号转 Excel 列名（1 → A）
func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

// cell 行列号转单元格坐标（1,1 → A1）
func cell(col, row int) string {
	c, _ := excelize.CoordinatesToCellName(col, row)
	return c
}
