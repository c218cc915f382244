package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/apigateway/pkg/auth"
)

// Ginコンテキストのキー。
const (
	contextKeyClaims = "claims"
	contextKeyUserID = "user_id"
)

// トークン検証失敗時のレスポンスメッセージ。
const (
	detailMissingToken   = "Authorization token is missing from the request headers."
	detailExpiredToken   = "The provided authorization token has expired. Please authenticate again."
	detailCorruptedToken = "The provided authorization token is invalid or corrupted."
)

// TokenValidator はAuthorizationヘッダーの値を検証してクレームを返す。
type TokenValidator interface {
	Validate(authorization string) (auth.Claims, error)
}

// JWTAuth はアクセストークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "claims" と "user_id" を設定する。
func JWTAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Authenticate(c, v); !ok {
			return
		}
		c.Next()
	}
}

// Authenticate はリクエストのアクセストークンを検証する。
// 失敗した場合は401を返して処理を中断し、falseを返す。
func Authenticate(c *gin.Context, v TokenValidator) (auth.Claims, bool) {
	claims, err := v.Validate(c.GetHeader(auth.HeaderAuthorization))
	if err != nil {
		kind, detail := describeTokenError(err)
		RecordFailure(c, kind, err)
		AbortWithDetail(c, http.StatusUnauthorized, detail)
		return nil, false
	}

	c.Set(contextKeyClaims, claims)
	c.Set(contextKeyUserID, claims.UserID())
	return claims, true
}

// describeTokenError は検証エラーを失敗種別とメッセージに変換する。
func describeTokenError(err error) (kind, detail string) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "MissingToken", detailMissingToken
	case errors.Is(err, auth.ErrExpiredToken):
		return "ExpiredToken", detailExpiredToken
	default:
		return "CorruptedToken", detailCorruptedToken
	}
}

// GetClaims はGinコンテキストから検証済みのクレームを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetClaims(c *gin.Context) auth.Claims {
	claims, _ := c.Get(contextKeyClaims)
	if cl, ok := claims.(auth.Claims); ok {
		return cl
	}
	return nil
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(contextKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
