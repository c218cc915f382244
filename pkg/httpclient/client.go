package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// 転送失敗の分類。呼び出し側は errors.Is で判定する。
var (
	// ErrTimeout は転送が制限時間内に完了しなかった場合のエラー。
	ErrTimeout = errors.New("backend request timed out")
	// ErrBackendUnavailable はバックエンドに接続できなかった場合のエラー。
	ErrBackendUnavailable = errors.New("backend is unavailable")
	// ErrInvalidBackendResponse はレスポンスボディがJSONでない場合のエラー。
	ErrInvalidBackendResponse = errors.New("backend returned a non-JSON response")
)

// DefaultTimeout は転送1回あたりの既定の制限時間。
const DefaultTimeout = 59 * time.Second

// Request はバックエンドへ転送するリクエスト。
type Request struct {
	// Method はHTTPメソッド。
	Method string
	// URL は転送先の絶対URL。
	URL string
	// Header は転送するヘッダー。Content-Typeはボディに合わせて上書きする。
	Header http.Header
	// Body はリクエストボディ。nilの場合は空のJSONオブジェクトを送る。
	Body Body
}

// Result はバックエンドからのレスポンス。
type Result struct {
	// StatusCode はバックエンドが返したステータスコード。
	StatusCode int
	// Body はJSONとして妥当なレスポンスボディ。空のレスポンスではnil。
	Body json.RawMessage
}

// Client はバックエンドへの転送を行うHTTPクライアント。
// 接続はトランスポートでプールされ、複数goroutineから同時に使用してよい。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// timeout は転送1回あたりの制限時間。
	timeout time.Duration
}

// New は新しい転送用クライアントを生成する。
// timeoutが0以下の場合は DefaultTimeout を使う。
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 32

	return &Client{
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
	}
}

// Timeout は転送1回あたりの制限時間を返す。
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Forward はリクエストをバックエンドへ転送し、ステータスコードとJSONボディを返す。
// ボディのエンコードからレスポンスの読み切りまでを制限時間内に行う。
func (c *Client) Forward(ctx context.Context, r *Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := r.Body
	if body == nil {
		body = JSONBody{}
	}
	reader, contentType, err := body.encode()
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, r, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, r, err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return &Result{StatusCode: resp.StatusCode}, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: %s %s: status=%d, content-type=%q",
			ErrInvalidBackendResponse, r.Method, r.URL, resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	return &Result{StatusCode: resp.StatusCode, Body: raw}, nil
}

// classify は送受信中のエラーをタイムアウトか接続不可に分類する。
func classify(ctx context.Context, r *Request, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, r.Method, r.URL, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, r.Method, r.URL, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrBackendUnavailable, r.Method, r.URL, err)
}
