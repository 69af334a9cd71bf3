package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/config"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/api/handler"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/api/middleware"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/jwt"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/metrics"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/redis"
)

// 动作接口的限流：每用户每分钟
const (
	actionRateLimit  = 60
	actionRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// m 为 nil 或指标关闭时不注册 /metrics
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 指标 ──
	if m != nil && cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
	{
		limit := middleware.RateLimit(rdb, actionRateLimit, actionRateWindow)

		registerWorkflow(authorized.Group("/phd-requests"), h.Request, h.Export.ExportLedger(workflow.PhdRequest), limit)
		registerWorkflow(authorized.Group("/phd-proposals"), h.Proposal, h.Export.ExportLedger(workflow.PhdProposal), limit)

		// 待办模块
		todos := authorized.Group("/todos")
		{
			todos.GET("", h.Todo.ListTodos)
			todos.GET("/calendar.ics", h.Todo.Calendar)
		}

		// 通知模块
		notifications := authorized.Group("/notifications")
		{
			notifications.GET("", h.Todo.ListNotifications)
			notifications.POST("/read", h.Todo.MarkNotificationsRead)
		}

		// 系统配置模块
		systemConfig := authorized.Group("/system-config")
		{
			systemConfig.GET("", h.SystemConfig.GetConfig)
			systemConfig.PUT("", middleware.RequirePermission(middleware.PermissionAdmin), h.SystemConfig.UpdateConfig)
		}
	}

	return r
}

// registerWorkflow 挂载一个流程的全部接口
// 角色校验在 Service 层按申请状态进行，这里只做认证与限流
func registerWorkflow(g *gin.RouterGroup, h *handler.WorkflowHandler, export gin.HandlerFunc, limit gin.HandlerFunc) {
	g.POST("", limit, h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/export", export)

	g.POST("/:id/submit", limit, h.Submit)
	g.POST("/:id/supervisor-review", limit, h.SupervisorReview)
	g.POST("/:id/drc-convener-review", limit, h.DrcConvenerReview)
	g.POST("/:id/drc-member-review", limit, h.DrcMemberReview)
	g.POST("/:id/hod-review", limit, h.HodReview)
	g.POST("/:id/edit-request", limit, h.RequestEdit)
	g.POST("/:id/edit-request/resolve", limit, h.ResolveEdit)
}
