package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/apigateway/pkg/auth"
	"github.com/nao1215/apigateway/pkg/httpclient"
	"github.com/nao1215/apigateway/pkg/middleware"
)

// ゲートウェイ自身が返すエラーメッセージ。
const (
	detailRouteNotFound      = "Route not found"
	detailMethodNotAllowed   = "Method Not Allowed"
	detailInvalidJSON        = "Invalid JSON body."
	detailInvalidForm        = "Invalid form data."
	detailBodyTooLarge       = "Request body too large."
	detailServiceUnavailable = "Service is unavailable."
	detailInvalidContentType = "Service error. Invalid content type received."
	detailInternalError      = "Internal server error."
)

// dispatchMethods は汎用ディスパッチャーが受け付けるメソッド。
var dispatchMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// handleDispatch はルートテーブルに従ってリクエストを転送するハンドラを返す。
// 明示的なルートに一致しなかった全てのリクエストがここに到達する。
func (s *Server) handleDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		middleware.SetRoute(c, path)

		if _, ok := dispatchMethods[c.Request.Method]; !ok {
			middleware.RecordFailure(c, "MethodNotAllowed", nil)
			middleware.AbortWithDetail(c, http.StatusMethodNotAllowed, detailMethodNotAllowed)
			return
		}

		r, err := s.table.Resolve(path)
		if err != nil {
			middleware.RecordFailure(c, "RouteNotFound", err)
			middleware.AbortWithDetail(c, http.StatusNotFound, detailRouteNotFound)
			return
		}

		if r.Protected {
			if _, ok := middleware.Authenticate(c, s.validator); !ok {
				return
			}
		}

		body, ok := s.readBody(c)
		if !ok {
			return
		}
		s.forward(c, r.Path, r.TargetURL, body)
	}
}

// readBody は受信したボディを転送用のボディに変換する。
// multipart/form-dataはパートの順序を保ったまま読み込み、それ以外はJSONとして扱う。
// 失敗した場合はエラーレスポンスを返してfalseを返す。
func (s *Server) readBody(c *gin.Context) (httpclient.Body, bool) {
	s.limitBody(c)

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		form, ok := s.readForm(c)
		if !ok {
			return nil, false
		}
		return form, true
	}

	switch c.Request.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		payload, ok := s.readJSON(c)
		if !ok {
			return nil, false
		}
		return httpclient.JSONBody{Payload: payload}, true
	default:
		return httpclient.JSONBody{}, true
	}
}

// limitBody はボディの上限が設定されていれば読み込み量を制限する。
func (s *Server) limitBody(c *gin.Context) {
	if s.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
	}
}

// readJSON はボディを読み込み、JSONとして妥当か確認する。空のボディはnilを返す。
func (s *Server) readJSON(c *gin.Context) (json.RawMessage, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortBodyError(c, err, detailInvalidJSON)
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, true
	}
	if !json.Valid(raw) {
		middleware.RecordFailure(c, "InvalidBody", errors.New("リクエストボディがJSONではありません"))
		middleware.AbortWithDetail(c, http.StatusBadRequest, detailInvalidJSON)
		return nil, false
	}
	return raw, true
}

// readForm はmultipartのパートを受信順に読み込む。
// ファイルパートはファイル名とContent-Typeを保持し、それ以外は文字列フィールドとして扱う。
func (s *Server) readForm(c *gin.Context) (httpclient.FormBody, bool) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		abortBodyError(c, err, detailInvalidForm)
		return httpclient.FormBody{}, false
	}

	var parts []httpclient.FormPart
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			abortBodyError(c, err, detailInvalidForm)
			return httpclient.FormBody{}, false
		}

		content, err := io.ReadAll(p)
		p.Close()
		if err != nil {
			abortBodyError(c, err, detailInvalidForm)
			return httpclient.FormBody{}, false
		}

		name := p.FormName()
		if name == "" {
			continue
		}
		if filename := p.FileName(); filename != "" {
			parts = append(parts, httpclient.FilePart(name, filename, p.Header.Get("Content-Type"), content))
			continue
		}
		parts = append(parts, httpclient.ValuePart(name, string(content)))
	}
	return httpclient.FormBody{Parts: parts}, true
}

// abortBodyError はボディの読み込み失敗をレスポンスに変換する。
// 上限を超えた場合は413、それ以外は400を返す。
func abortBodyError(c *gin.Context, err error, detail string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.RecordFailure(c, "BodyTooLarge", err)
		middleware.AbortWithDetail(c, http.StatusRequestEntityTooLarge, detailBodyTooLarge)
		return
	}
	middleware.RecordFailure(c, "InvalidBody", err)
	middleware.AbortWithDetail(c, http.StatusBadRequest, detail)
}

// forward はリクエストを転送先URLへ送り、結果をそのままクライアントへ返す。
// クエリ文字列は転送先URLに引き継ぐ。routeはメトリクスのラベルに使う。
func (s *Server) forward(c *gin.Context, route, targetURL string, body httpclient.Body) {
	if q := c.Request.URL.RawQuery; q != "" {
		targetURL += "?" + q
	}

	start := time.Now()
	res, err := s.client.Forward(c.Request.Context(), &httpclient.Request{
		Method: c.Request.Method,
		URL:    targetURL,
		Header: auth.ExtractHeaders(c.Request.Header),
		Body:   body,
	})
	s.metrics.observe(route, c.Request.Method, err, time.Since(start))
	if err != nil {
		status, kind, detail := describeForwardError(err)
		middleware.RecordFailure(c, kind, err)
		middleware.AbortWithDetail(c, status, detail)
		return
	}

	if res.Body == nil {
		// NoRoute内では未送信の404をginが独自のテキストで上書きするため、ここで送出する。
		c.Status(res.StatusCode)
		c.Writer.WriteHeaderNow()
		return
	}
	c.Data(res.StatusCode, gin.MIMEJSON, res.Body)
}

// describeForwardError は転送エラーをレスポンスのステータスコードとメッセージに変換する。
func describeForwardError(err error) (status int, kind, detail string) {
	switch {
	case errors.Is(err, httpclient.ErrInvalidBackendResponse):
		return http.StatusInternalServerError, "InvalidBackendResponse", detailInvalidContentType
	case errors.Is(err, httpclient.ErrTimeout):
		return http.StatusServiceUnavailable, "Timeout", detailServiceUnavailable
	case errors.Is(err, httpclient.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "BackendUnavailable", detailServiceUnavailable
	default:
		// リクエストの組み立てに失敗した場合などゲートウェイ内部の障害。
		return http.StatusInternalServerError, "GatewayError", detailInternalError
	}
}
