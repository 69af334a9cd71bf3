package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	applogger "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/logger"
)

const (
	traceIDKey    = "trace_id"
	traceIDHeader = "X-Request-ID"
	// 外部传入的追踪 ID 超长时丢弃，防止日志注入
	traceIDMaxLen = 64
)

// RequestID 请求追踪中间件
// 沿用上游的 X-Request-ID，缺失时生成 UUID；
// 同时写入 gin.Context 与 request context，副作用日志和转移事件可据此关联到原始请求
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		tid := c.GetHeader(traceIDHeader)
		if tid == "" || len(tid) > traceIDMaxLen {
			tid = uuid.NewString()
		}

		c.Set(traceIDKey, tid)
		c.Request = c.Request.WithContext(applogger.WithTraceID(c.Request.Context(), tid))
		c.Header(traceIDHeader, tid)

		c.Next()
	}
}
