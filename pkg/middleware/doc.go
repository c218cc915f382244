// Package middleware はゲートウェイのHTTP APIで使用するGinミドルウェアを提供する。
//
// アクセストークンの検証、リクエストIDの付与、アクセスログ、
// パニックリカバリ、CORS設定、クライアントごとのレート制限、
// およびゲートウェイ自身のエラーレスポンスを含む。
package middleware
