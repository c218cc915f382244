package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestHandleLogin はトークン発行ハンドラのテスト。
func TestHandleLogin(t *testing.T) {
	t.Parallel()

	t.Run("認証失敗の401がそのまま返ること", func(t *testing.T) {
		t.Parallel()

		users, received := newBackend(t, http.StatusUnauthorized, `{"detail":"Invalid credentials"}`)
		s := newTestServer(t, newTestConfig(users.URL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token/",
			strings.NewReader(`{"username":"john@yopmail.com","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := w.Body.String(); got != `{"detail":"Invalid credentials"}` {
			t.Errorf("ボディ = %s", got)
		}

		r := receive(t, received)
		if r.Method != http.MethodPost || r.Path != "/api/auth/token/" {
			t.Errorf("転送先 = %s %s", r.Method, r.Path)
		}
	})

	t.Run("usernameとpasswordだけが転送されること", func(t *testing.T) {
		t.Parallel()

		users, received := newBackend(t, http.StatusOK, `{"access":"a","refresh":"r"}`)
		s := newTestServer(t, newTestConfig(users.URL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token/",
			strings.NewReader(`{"username":"john@yopmail.com","password":"john@123","is_admin":true}`))
		req.Header.Set("Content-Type", "application/json")
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		r := receive(t, received)
		var sent map[string]any
		if err := json.Unmarshal(r.Body, &sent); err != nil {
			t.Fatalf("転送ボディのパースに失敗: %v", err)
		}
		if len(sent) != 2 || sent["username"] != "john@yopmail.com" || sent["password"] != "john@123" {
			t.Errorf("転送ボディ = %v", sent)
		}
	})

	t.Run("passwordが無い場合に422が返ること", func(t *testing.T) {
		t.Parallel()

		users, received := newBackend(t, http.StatusOK, `{}`)
		s := newTestServer(t, newTestConfig(users.URL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token/", strings.NewReader(`{"username":"john@yopmail.com"}`))
		req.Header.Set("Content-Type", "application/json")
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
		if got := decodeDetail(t, w); got != "password: field required" {
			t.Errorf("detail = %q, want %q", got, "password: field required")
		}
		select {
		case <-received:
			t.Error("検証に失敗したリクエストが転送された")
		default:
		}
	})

	t.Run("ボディがオブジェクトでない場合に422が返ること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, newTestConfig(unreachableURL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token/", strings.NewReader(`["john"]`))
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("ユーザーサービスに接続できない場合に503が返ること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, newTestConfig(unreachableURL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token/",
			strings.NewReader(`{"username":"john@yopmail.com","password":"john@123"}`))
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
		if got := w.Body.String(); got != `{"detail":"Service is unavailable."}` {
			t.Errorf("ボディ = %s", got)
		}
	})
}

// TestHandleGetUser はユーザー取得ハンドラのテスト。
func TestHandleGetUser(t *testing.T) {
	t.Parallel()

	t.Run("指定IDのユーザーがそのまま返ること", func(t *testing.T) {
		t.Parallel()

		users, received := newBackend(t, http.StatusOK, `{"id":42,"email":"john@yopmail.com"}`)
		s := newTestServer(t, newTestConfig(users.URL, unreachableURL))
		token := bearer(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/accounts/users/42/", nil)
		req.Header.Set("Authorization", token)
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
		}
		if got := w.Body.String(); got != `{"id":42,"email":"john@yopmail.com"}` {
			t.Errorf("ボディ = %s", got)
		}

		r := receive(t, received)
		if r.Path != "/api/accounts/users/42/" {
			t.Errorf("Path = %q, want %q", r.Path, "/api/accounts/users/42/")
		}
		if got := r.Header.Get("Authorization"); got != token {
			t.Errorf("Authorization = %q, want %q", got, token)
		}
	})

	t.Run("ユーザーが存在しない場合の404がそのまま返ること", func(t *testing.T) {
		t.Parallel()

		users, received := newBackend(t, http.StatusNotFound, `{"detail":"Not found."}`)
		s := newTestServer(t, newTestConfig(users.URL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/accounts/users/999/", nil)
		req.Header.Set("Authorization", bearer(t))
		s.router.ServeHTTP(w, req)
		receive(t, received)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
		if got := decodeDetail(t, w); got != "Not found." {
			t.Errorf("detail = %q, want %q", got, "Not found.")
		}
	})

	t.Run("IDが数値でない場合に422が返ること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, newTestConfig(unreachableURL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/accounts/users/abc/", nil)
		req.Header.Set("Authorization", bearer(t))
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
		if got := decodeDetail(t, w); got != "id: value is not a valid integer" {
			t.Errorf("detail = %q", got)
		}
	})

	t.Run("トークンが無い場合に401が返ること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, newTestConfig(unreachableURL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/accounts/users/42/", nil)
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestHandleUploadUserDocument はユーザー書類アップロードハンドラのテスト。
func TestHandleUploadUserDocument(t *testing.T) {
	t.Parallel()

	t.Run("ファイルとフィールドがユーザーサービスへ転送されること", func(t *testing.T) {
		t.Parallel()

		users, received := newBackend(t, http.StatusCreated, `{"id":1,"document_type":"passport"}`)
		s := newTestServer(t, newTestConfig(users.URL, unreachableURL))

		body, contentType := buildMultipart(t, []formPart{
			{Name: "document_type", Content: "passport"},
			{Name: "user", Content: "42"},
			{Name: "document", Filename: "passport.png", ContentType: "image/png", Content: "\x89PNG"},
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/user-documents/", body)
		req.Header.Set("Authorization", bearer(t))
		req.Header.Set("Content-Type", contentType)
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード: got %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
		}

		r := receive(t, received)
		if r.Path != "/api/accounts/user-documents/" {
			t.Errorf("Path = %q, want %q", r.Path, "/api/accounts/user-documents/")
		}
		got := map[string]formPart{}
		for _, p := range parseMultipart(t, r) {
			got[p.Name] = p
		}
		if got["document_type"].Content != "passport" {
			t.Errorf("document_type = %q, want %q", got["document_type"].Content, "passport")
		}
		if got["user"].Content != "42" {
			t.Errorf("user = %q, want %q", got["user"].Content, "42")
		}
		doc := got["document"]
		if doc.Filename != "passport.png" || doc.ContentType != "image/png" || doc.Content != "\x89PNG" {
			t.Errorf("document = %+v", doc)
		}
	})

	t.Run("ファイルが無い場合に422が返ること", func(t *testing.T) {
		t.Parallel()

		users, received := newBackend(t, http.StatusCreated, `{}`)
		s := newTestServer(t, newTestConfig(users.URL, unreachableURL))

		body, contentType := buildMultipart(t, []formPart{
			{Name: "document_type", Content: "passport"},
			{Name: "user", Content: "42"},
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/user-documents/", body)
		req.Header.Set("Authorization", bearer(t))
		req.Header.Set("Content-Type", contentType)
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
		if got := decodeDetail(t, w); got != "document: field required" {
			t.Errorf("detail = %q, want %q", got, "document: field required")
		}
		select {
		case <-received:
			t.Error("検証に失敗したリクエストが転送された")
		default:
		}
	})

	t.Run("multipartでない場合に422が返ること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, newTestConfig(unreachableURL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/user-documents/", strings.NewReader(`{}`))
		req.Header.Set("Authorization", bearer(t))
		req.Header.Set("Content-Type", "application/json")
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("トークンが無い場合に401が返ること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, newTestConfig(unreachableURL, unreachableURL))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/user-documents/", strings.NewReader(`{}`))
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
