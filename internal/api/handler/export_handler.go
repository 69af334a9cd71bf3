package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/service"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportLedger 导出某流程的评审台账
// 返回的 HandlerFunc 挂在 GET /api/v1/{phd-requests|phd-proposals}/:id/export
func (h *ExportHandler) ExportLedger(name workflow.Name) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := MustGetActor(c)
		if !ok {
			return
		}
		id, ok := MustGetID(c)
		if !ok {
			return
		}

		buf, filename, err := h.exportSvc.ExportLedger(c.Request.Context(), name, actor, id)
		if err != nil {
			h.handleExportError(c, err)
			return
		}

		response.Attachment(c, xlsxContentType, filename, buf.Bytes())
	}
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleWorkflowError(c, err)
	}
}
