package auth

import (
	"maps"
	"net/http"
	"slices"
	"strings"
)

// 伝播するヘッダー名。
const (
	// HeaderAuthorization はアクセストークンを運ぶヘッダー。
	HeaderAuthorization = "Authorization"
	// HeaderDeviceID はクライアント端末の識別子を運ぶヘッダー。
	HeaderDeviceID = "Device-ID"
)

// ExtractHeaders は受信ヘッダーからバックエンドへ伝播するものだけを取り出す。
// 対象は Device-ID と Authorization のみで、それ以外は破棄する。
// 出力のキーは正規化済みの形式になるため、結果に再適用しても同じ結果になる。
func ExtractHeaders(in http.Header) http.Header {
	out := make(http.Header, 2)
	if v := lookup(in, isDeviceIDKey); v != "" {
		out.Set(HeaderDeviceID, v)
	}
	if v := lookup(in, isAuthorizationKey); v != "" {
		out.Set(HeaderAuthorization, v)
	}
	return out
}

// isDeviceIDKey はキーがDevice-IDそのもの、またはnet/httpが正規化した形式かを返す。
func isDeviceIDKey(key string) bool {
	return key == HeaderDeviceID || key == http.CanonicalHeaderKey(HeaderDeviceID)
}

// isAuthorizationKey は大文字小文字を区別せずにAuthorizationかを返す。
func isAuthorizationKey(key string) bool {
	return strings.EqualFold(key, HeaderAuthorization)
}

// lookup は条件に合うキーの最初の空でない値を返す。
// 同名のキーが複数ある場合に結果が揺れないよう、キーを整列してから走査する。
func lookup(h http.Header, match func(string) bool) string {
	for _, key := range slices.Sorted(maps.Keys(h)) {
		if !match(key) {
			continue
		}
		if values := h[key]; len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}
