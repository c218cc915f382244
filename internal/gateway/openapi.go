package gateway

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

// openAPIDocument はゲートウェイが公開するAPIのOpenAPI 3ドキュメント。
//
//go:embed openapi.json
var openAPIDocument []byte

// handleOpenAPI はOpenAPIドキュメントを返すハンドラを返す。
func (s *Server) handleOpenAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, gin.MIMEJSON, openAPIDocument)
	}
}
