package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/dto"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/service"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	pkgerrors "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/errors"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/response"
)

// WorkflowHandler 审批流程 HTTP 处理器（每个流程一个实例）
type WorkflowHandler struct {
	workflowSvc service.WorkflowService
}

// NewWorkflowHandler 创建 WorkflowHandler
func NewWorkflowHandler(workflowSvc service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowSvc: workflowSvc}
}

// Create 创建申请
// POST /api/v1/{phd-requests|phd-proposals}
func (h *WorkflowHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	detail, err := h.workflowSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handleWorkflowError(c, err)
		return
	}
	response.Created(c, detail)
}

// Get 申请详情（含文档与评审台账）
// GET /api/v1/{phd-requests|phd-proposals}/:id
func (h *WorkflowHandler) Get(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	detail, err := h.workflowSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		handleWorkflowError(c, err)
		return
	}
	response.OK(c, detail)
}

// List 申请列表
// GET /api/v1/{phd-requests|phd-proposals}?scope=mine|drc-member|pending
func (h *WorkflowHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.ListWorkflowRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.workflowSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		handleWorkflowError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Submit 提交 / 重新提交
// POST /:id/submit
func (h *WorkflowHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	h.act(c, &req, func(c *gin.Context, a actorAndID) (*dto.TransitionResponse, error) {
		return h.workflowSvc.Submit(c.Request.Context(), a.actor, a.id, &req)
	})
}

// SupervisorReview 导师审核
// POST /:id/supervisor-review
func (h *WorkflowHandler) SupervisorReview(c *gin.Context) {
	var req dto.SupervisorReviewRequest
	h.act(c, &req, func(c *gin.Context, a actorAndID) (*dto.TransitionResponse, error) {
		return h.workflowSvc.SupervisorReview(c.Request.Context(), a.actor, a.id, &req)
	})
}

// DrcConvenerReview DRC 召集人审核
// POST /:id/drc-convener-review
func (h *WorkflowHandler) DrcConvenerReview(c *gin.Context) {
	var req dto.DrcConvenerReviewRequest
	h.act(c, &req, func(c *gin.Context, a actorAndID) (*dto.TransitionResponse, error) {
		return h.workflowSvc.DrcConvenerReview(c.Request.Context(), a.actor, a.id, &req)
	})
}

// DrcMemberReview DRC 成员审核
// POST /:id/drc-member-review
func (h *WorkflowHandler) DrcMemberReview(c *gin.Context) {
	var req dto.DrcMemberReviewRequest
	h.act(c, &req, func(c *gin.Context, a actorAndID) (*dto.TransitionResponse, error) {
		return h.workflowSvc.DrcMemberReview(c.Request.Context(), a.actor, a.id, &req)
	})
}

// HodReview HOD 审核
// POST /:id/hod-review
func (h *WorkflowHandler) HodReview(c *gin.Context) {
	var req dto.HodReviewRequest
	h.act(c, &req, func(c *gin.Context, a actorAndID) (*dto.TransitionResponse, error) {
		return h.workflowSvc.HodReview(c.Request.Context(), a.actor, a.id, &req)
	})
}

// RequestEdit 发起修改 / 删除请求
// POST /:id/edit-request
func (h *WorkflowHandler) RequestEdit(c *gin.Context) {
	var req dto.EditRequestRequest
	h.act(c, &req, func(c *gin.Context, a actorAndID) (*dto.TransitionResponse, error) {
		return h.workflowSvc.RequestEdit(c.Request.Context(), a.actor, a.id, &req)
	})
}

// ResolveEdit 处理修改请求
// POST /:id/edit-request/resolve
func (h *WorkflowHandler) ResolveEdit(c *gin.Context) {
	var req dto.ResolveEditRequest
	h.act(c, &req, func(c *gin.Context, a actorAndID) (*dto.TransitionResponse, error) {
		return h.workflowSvc.ResolveEdit(c.Request.Context(), a.actor, a.id, &req)
	})
}

type actorAndID struct {
	actor workflow.Actor
	id    uint
}

// act 公共流程：鉴别身份 → 解析 ID → 绑定请求体 → 执行动作
func (h *WorkflowHandler) act(c *gin.Context, req interface{}, run func(*gin.Context, actorAndID) (*dto.TransitionResponse, error)) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := run(c, actorAndID{actor: actor, id: id})
	if err != nil {
		handleWorkflowError(c, err)
		return
	}
	response.OK(c, result)
}

// handleWorkflowError 统一处理审批流程业务错误
//
//	NotFound → 404 / Forbidden → 403 / InvalidState → 409（区分尚未就绪与已处理）
//	Validation → 400 / Conflict → 409
func handleWorkflowError(c *gin.Context, err error) {
	var we *pkgerrors.Error
	if errors.As(err, &we) {
		switch we.Kind {
		case pkgerrors.KindNotFound:
			response.NotFound(c, 20404, we.Message)
		case pkgerrors.KindForbidden:
			response.Forbidden(c, 20403, we.Message)
		case pkgerrors.KindInvalidState:
			code := 20901
			if we.TooEarly {
				code = 20902
			}
			response.Conflict(c, code, we.Message)
		case pkgerrors.KindValidation:
			response.BadRequest(c, 20400, we.Message)
		case pkgerrors.KindConflict:
			response.Conflict(c, 20909, we.Message)
		default:
			response.InternalError(c)
		}
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20909, "申请已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrExportUnknownWorkflow):
		response.NotFound(c, 20404, "未知的审批流程")
	default:
		response.InternalError(c)
	}
}
