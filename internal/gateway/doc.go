// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、受信したリクエストを
// ルートテーブルに従って内部サービス（users、events）へ転送する。
// 保護されたルートではアクセストークンを検証し、AuthorizationとDevice-IDの
// ヘッダーだけを引き継ぐ。内部サービスのレスポンスはステータスコードと
// JSONボディをそのまま返す。
package gateway
