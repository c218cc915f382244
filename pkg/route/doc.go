// Package route は受信パスからバックエンドURLを解決するルートテーブルを提供する。
//
// テーブルは起動時に一度だけ構築され、以降は読み取り専用となる。
// パスの照合は完全一致（末尾スラッシュを含む）のみで、
// 前方一致やパスパラメータの展開は行わない。
package route
