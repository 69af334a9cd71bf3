package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/redis"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/response"
)

// RateLimit 动作接口限流（Redis 滑动窗口）
// 已认证请求按用户邮箱计数，同一教师在多台设备上共享额度；未认证时退回按 IP
// rdb 为 nil 或 Redis 出错时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := c.GetString(ContextEmail)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := fmt.Sprintf("rate_limit:%s:%s:%s", subject, c.Request.Method, c.FullPath())

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "操作过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
