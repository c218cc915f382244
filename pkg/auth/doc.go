// Package auth はゲートウェイで扱うアクセストークンの検証と、
// バックエンドへ伝播する認証ヘッダーの抽出を提供する。
//
// トークンの発行はユーザーサービスの責務であり、本パッケージは扱わない。
package auth
