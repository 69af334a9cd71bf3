package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/api/middleware"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/response"
)

// MustGetEmail 从 Gin 上下文中安全提取当前用户邮箱。
// 如果 JWT 中间件未正确注入 email，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetEmail(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextEmail)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 提取邮箱与权限，组装为流程动作的执行人
func MustGetActor(c *gin.Context) (workflow.Actor, bool) {
	email, ok := MustGetEmail(c)
	if !ok {
		return workflow.Actor{}, false
	}
	var perms []string
	if v, exists := c.Get(middleware.ContextPermissions); exists {
		perms, _ = v.([]string)
	}
	return workflow.Actor{Email: email, Permissions: perms}, true
}

// MustGetID 解析路径参数 :id
func MustGetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "无效的申请 ID")
		return 0, false
	}
	return uint(id), true
}
