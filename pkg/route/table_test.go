package route

import (
	"errors"
	"testing"
)

// testServices はテスト用のサービスURL。
var testServices = map[string]string{
	ServiceUsers:  "http://users:8000",
	ServiceEvents: "http://events:8001/",
}

// TestNewTable はNewTable関数を検証する。
func TestNewTable(t *testing.T) {
	t.Parallel()

	t.Run("既定のルート定義からテーブルを構築できること", func(t *testing.T) {
		t.Parallel()

		table, err := NewTable(testServices, DefaultDefinitions)
		if err != nil {
			t.Fatalf("NewTable()でエラーが発生: %v", err)
		}
		if got := len(table.Routes()); got != len(DefaultDefinitions) {
			t.Errorf("ルート数 = %d, want %d", got, len(DefaultDefinitions))
		}
	})

	t.Run("ベースURLの末尾スラッシュが取り除かれること", func(t *testing.T) {
		t.Parallel()

		table, err := NewTable(testServices, DefaultDefinitions)
		if err != nil {
			t.Fatalf("NewTable()でエラーが発生: %v", err)
		}
		r, err := table.Resolve("/api/events/")
		if err != nil {
			t.Fatalf("Resolve()でエラーが発生: %v", err)
		}
		if r.TargetURL != "http://events:8001/api/events/" {
			t.Errorf("TargetURL = %q, want %q", r.TargetURL, "http://events:8001/api/events/")
		}
	})

	t.Run("ベースURLが空の場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		services := map[string]string{ServiceUsers: "", ServiceEvents: "http://events:8001"}
		if _, err := NewTable(services, DefaultDefinitions); err == nil {
			t.Fatal("空のベースURLでエラーが返るべき")
		}
	})

	t.Run("参照先サービスが未設定の場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		services := map[string]string{ServiceUsers: "http://users:8000"}
		if _, err := NewTable(services, DefaultDefinitions); err == nil {
			t.Fatal("未設定のサービスでエラーが返るべき")
		}
	})

	t.Run("相対URLの場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		services := map[string]string{ServiceUsers: "users:8000/api"}
		defs := []Definition{{Path: "/api/auth/token/", Service: ServiceUsers}}
		if _, err := NewTable(services, defs); err == nil {
			t.Fatal("相対URLでエラーが返るべき")
		}
	})

	t.Run("パスが/で始まらない場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		defs := []Definition{{Path: "api/auth/token/", Service: ServiceUsers}}
		if _, err := NewTable(testServices, defs); err == nil {
			t.Fatal("/で始まらないパスでエラーが返るべき")
		}
	})

	t.Run("パスが重複する場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		defs := []Definition{
			{Path: "/api/events/", Service: ServiceEvents},
			{Path: "/api/events/", Service: ServiceUsers},
		}
		if _, err := NewTable(testServices, defs); err == nil {
			t.Fatal("重複したパスでエラーが返るべき")
		}
	})
}

// TestResolve はResolve関数を検証する。
func TestResolve(t *testing.T) {
	t.Parallel()

	table, err := NewTable(testServices, DefaultDefinitions)
	if err != nil {
		t.Fatalf("NewTable()でエラーが発生: %v", err)
	}

	t.Run("設定済みのパスが正しいURLに解決されること", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			path      string
			target    string
			protected bool
		}{
			{"/api/auth/token/", "http://users:8000/api/auth/token/", false},
			{"/api/accounts/users/", "http://users:8000/api/accounts/users/", true},
			{"/api/events/", "http://events:8001/api/events/", true},
		}
		for _, tt := range tests {
			r, err := table.Resolve(tt.path)
			if err != nil {
				t.Fatalf("Resolve(%q)でエラーが発生: %v", tt.path, err)
			}
			if r.TargetURL != tt.target {
				t.Errorf("Resolve(%q).TargetURL = %q, want %q", tt.path, r.TargetURL, tt.target)
			}
			if r.Protected != tt.protected {
				t.Errorf("Resolve(%q).Protected = %v, want %v", tt.path, r.Protected, tt.protected)
			}
		}
	})

	t.Run("未設定のパスでErrRouteNotFoundが返ること", func(t *testing.T) {
		t.Parallel()

		paths := []string{
			"/api/events",             // 末尾スラッシュなし
			"/api/events/42/",         // 前方一致はしない
			"api/events/",             // 先頭スラッシュなし
			"/API/EVENTS/",            // 大文字小文字は区別する
			"/",
			"",
		}
		for _, p := range paths {
			_, err := table.Resolve(p)
			if !errors.Is(err, ErrRouteNotFound) {
				t.Errorf("Resolve(%q) error = %v, want ErrRouteNotFound", p, err)
			}
		}
	})
}

// TestRoutes はRoutes関数がパス順に並んだ一覧を返すことを検証する。
func TestRoutes(t *testing.T) {
	t.Parallel()

	table, err := NewTable(testServices, DefaultDefinitions)
	if err != nil {
		t.Fatalf("NewTable()でエラーが発生: %v", err)
	}

	routes := table.Routes()
	for i := 1; i < len(routes); i++ {
		if routes[i-1].Path >= routes[i].Path {
			t.Errorf("ルートがパス順に並んでいない: %q >= %q", routes[i-1].Path, routes[i].Path)
		}
	}
}

// TestBaseURL はBaseURLメソッドを検証する。
func TestBaseURL(t *testing.T) {
	t.Parallel()

	table, err := NewTable(testServices, DefaultDefinitions)
	if err != nil {
		t.Fatalf("NewTable()でエラーが発生: %v", err)
	}

	t.Run("正規化済みのベースURLが返ること", func(t *testing.T) {
		t.Parallel()

		got, ok := table.BaseURL(ServiceEvents)
		if !ok {
			t.Fatal("eventsサービスのベースURLが見つからない")
		}
		if got != "http://events:8001" {
			t.Errorf("BaseURL() = %q, want %q", got, "http://events:8001")
		}
	})

	t.Run("未参照のサービスはfalseが返ること", func(t *testing.T) {
		t.Parallel()

		if _, ok := table.BaseURL("payments"); ok {
			t.Error("未参照のサービスでtrueが返った")
		}
	})
}
