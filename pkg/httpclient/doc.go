// Package httpclient はゲートウェイからバックエンドサービスへリクエストを転送するクライアントを提供する。
//
// 1回の転送はタイムアウト付きの単発呼び出しで、リトライは行わない。
// 失敗はタイムアウト・接続不可・不正なレスポンスの3種類に分類して返す。
package httpclient
