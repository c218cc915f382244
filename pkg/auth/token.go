package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン検証の失敗種別。呼び出し側は errors.Is で判定する。
var (
	// ErrMissingToken はAuthorizationヘッダーが無い、または空の場合のエラー。
	ErrMissingToken = errors.New("authorization token is missing")
	// ErrCorruptedToken は形式・署名・アルゴリズムが不正な場合のエラー。
	ErrCorruptedToken = errors.New("authorization token is invalid or corrupted")
	// ErrExpiredToken は有効期限切れの場合のエラー。
	ErrExpiredToken = errors.New("authorization token has expired")
)

// bearerPrefix はAuthorizationヘッダーの接頭辞。
const bearerPrefix = "Bearer "

// Claims はデコード済みのトークンペイロード。
type Claims map[string]any

// UserID はユーザーIDを文字列で返す。
// ユーザーサービスが発行するuser_idクレームを優先し、無ければsubを使う。
func (c Claims) UserID() string {
	switch id := c["user_id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	sub, _ := c["sub"].(string)
	return sub
}

// Email はemailクレームを返す。
func (c Claims) Email() string {
	email, _ := c["email"].(string)
	return email
}

// Permissions はpermissionsクレームを文字列のスライスで返す。
func (c Claims) Permissions() []string {
	raw, ok := c["permissions"].([]any)
	if !ok {
		return nil
	}
	perms := make([]string, 0, len(raw))
	for _, p := range raw {
		if s, ok := p.(string); ok {
			perms = append(perms, s)
		}
	}
	return perms
}

// TokenValidator はHS256で署名されたアクセストークンを検証する。
// 状態を持たないため、複数goroutineから同時に使用してよい。
type TokenValidator struct {
	// secret は署名検証用の共有鍵。
	secret []byte
	// now は現在時刻を返す。テスト時に差し替える。
	now func() time.Time
}

// NewTokenValidator は共有鍵を使うTokenValidatorを生成する。
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Validate はAuthorizationヘッダーの値を検証し、クレームを返す。
// "Bearer "接頭辞は付いていれば取り除く。expクレームは必須としない。
func (v *TokenValidator) Validate(authorization string) (Claims, error) {
	if authorization == "" {
		return nil, ErrMissingToken
	}
	tokenString, _ := strings.CutPrefix(authorization, bearerPrefix)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := v.now()
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || expiredUnverified(tokenString, now) {
			return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCorruptedToken, err)
	}
	if !token.Valid {
		return nil, ErrCorruptedToken
	}

	return Claims(claims), nil
}

// expiredUnverified は署名を検証せずにexpクレームだけを確認する。
// 失敗種別の判定にのみ使い、この結果でトークンを受け入れることはない。
func expiredUnverified(tokenString string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
