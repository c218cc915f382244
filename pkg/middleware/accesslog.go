package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// contextKeyRoute はログに出力するルートを格納するキー。
const contextKeyRoute = "route"

// SetRoute はログに出力するルートを設定する。
// 設定が無い場合はGinのルートパターン、それも無ければリクエストパスを出力する。
func SetRoute(c *gin.Context, route string) {
	c.Set(contextKeyRoute, route)
}

// AccessLog はリクエストごとに1行のアクセスログを出力するGinミドルウェアを返す。
// 失敗が記録されている場合は失敗種別と原因も出力する。
func AccessLog(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"request_id": GetRequestID(c),
			"method":     c.Request.Method,
			"route":      routeOf(c),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}
		if userID := GetUserID(c); userID != "" {
			fields["user_id"] = userID
		}

		kind := GetFailureKind(c)
		if kind == "" {
			logger.WithFields(fields).Info("リクエストを処理しました")
			return
		}

		fields["kind"] = kind
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}
		entry := logger.WithFields(fields)
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("リクエストの処理に失敗しました")
			return
		}
		entry.Warn("リクエストの処理に失敗しました")
	}
}

// routeOf はログに出力するルートを決める。
func routeOf(c *gin.Context) string {
	if r, ok := c.Get(contextKeyRoute); ok {
		if s, ok := r.(string); ok {
			return s
		}
	}
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
