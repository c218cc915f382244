package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// contextKeyFailureKind は失敗種別をGinコンテキストに格納するキー。
const contextKeyFailureKind = "failure_kind"

// AbortWithDetail はゲートウェイ自身のエラーレスポンスを返して処理を中断する。
// レスポンスボディは {"detail": "..."} の形式。
func AbortWithDetail(c *gin.Context, status int, detail string) {
	switch status {
	case http.StatusUnauthorized, http.StatusInternalServerError, http.StatusServiceUnavailable:
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// RecordFailure は失敗種別と原因をコンテキストに記録する。
// 記録した内容はAccessLogミドルウェアが出力する。
func RecordFailure(c *gin.Context, kind string, err error) {
	c.Set(contextKeyFailureKind, kind)
	if err != nil {
		_ = c.Error(err)
	}
}

// GetFailureKind は記録された失敗種別を返す。記録が無い場合は空文字列。
func GetFailureKind(c *gin.Context) string {
	kind, _ := c.Get(contextKeyFailureKind)
	if s, ok := kind.(string); ok {
		return s
	}
	return ""
}
