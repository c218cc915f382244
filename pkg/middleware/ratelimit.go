package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// maxRateLimitedClients は同時に保持するクライアントごとのリミッター数。
const maxRateLimitedClients = 10000

// RateLimit はクライアントIPごとにリクエスト数を制限するGinミドルウェアを返す。
// rpsが0以下の場合は制限しない。上限を超えたリクエストには429を返す。
// リミッターはLRUで保持し、しばらくリクエストの無いクライアントから破棄する。
func RateLimit(rps float64, burst int) (gin.HandlerFunc, error) {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }, nil
	}
	if burst < 1 {
		return nil, fmt.Errorf("バースト数は1以上である必要があります: %d", burst)
	}

	limiters, err := lru.New[string, *rate.Limiter](maxRateLimitedClients)
	if err != nil {
		return nil, fmt.Errorf("リミッターのキャッシュ生成に失敗: %w", err)
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter, ok := limiters.Get(ip)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			if prev, found, _ := limiters.PeekOrAdd(ip, limiter); found {
				limiter = prev
			}
		}

		if !limiter.Allow() {
			RecordFailure(c, "RateLimited", nil)
			c.Header("Retry-After", "1")
			AbortWithDetail(c, http.StatusTooManyRequests, "Too many requests.")
			return
		}
		c.Next()
	}, nil
}
