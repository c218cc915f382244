// Package config はゲートウェイの設定を環境変数と設定ファイルから読み込む。
//
// 設定は起動時に一度だけ読み込んで検証し、以降は不変の値として
// ルートテーブル・トークン検証・転送クライアントの生成時に渡す。
// 必須値の欠落は起動時のエラーとなる。
package config
