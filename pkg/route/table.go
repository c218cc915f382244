package route

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrRouteNotFound はパスに一致するルートが存在しない場合のエラー。
var ErrRouteNotFound = errors.New("route not found")

// サービス名。ベースURLの設定キーと対応する。
const (
	// ServiceUsers はユーザー・アカウント・認証を担当するサービス。
	ServiceUsers = "users"
	// ServiceEvents はイベントを担当するサービス。
	ServiceEvents = "events"
)

// Definition はルートの定義。Service はベースURLを引くためのサービス名。
type Definition struct {
	// Path は受信パス。"/"で始まる必要がある。
	Path string
	// Service は転送先サービス名。
	Service string
	// Protected がtrueの場合、転送前にアクセストークンを検証する。
	Protected bool
}

// DefaultDefinitions はゲートウェイが転送するルートの一覧。
var DefaultDefinitions = []Definition{
	// 認証（トークン発行はユーザーサービスが担当）
	{Path: "/api/auth/token/", Service: ServiceUsers},
	// ユーザー
	{Path: "/api/accounts/users/", Service: ServiceUsers, Protected: true},
	// イベント
	{Path: "/api/events/", Service: ServiceEvents, Protected: true},
}

// Route は解決済みのルート。
type Route struct {
	// Path は受信パス。
	Path string
	// Service は転送先サービス名。
	Service string
	// TargetURL は転送先の絶対URL。
	TargetURL string
	// Protected がtrueの場合、アクセストークンが必要。
	Protected bool
}

// Table はパスからルートへの不変のマッピング。
// 構築後は変更されないため、複数goroutineから同時に参照してよい。
type Table struct {
	routes map[string]Route
	// bases はルートから参照されているサービスの正規化済みベースURL。
	bases map[string]string
}

// NewTable はサービスのベースURLとルート定義からテーブルを構築する。
// 参照先サービスのURLが未設定・不正な場合や、パスが重複する場合はエラーを返す。
func NewTable(services map[string]string, defs []Definition) (*Table, error) {
	routes := make(map[string]Route, len(defs))
	bases := make(map[string]string)
	for _, def := range defs {
		if !strings.HasPrefix(def.Path, "/") {
			return nil, fmt.Errorf("ルートのパスは/で始まる必要があります: %q", def.Path)
		}
		if _, dup := routes[def.Path]; dup {
			return nil, fmt.Errorf("ルートのパスが重複しています: %q", def.Path)
		}

		baseURL, ok := services[def.Service]
		if !ok {
			return nil, fmt.Errorf("未知のサービスです: path=%q, service=%q", def.Path, def.Service)
		}
		baseURL, err := normalizeBaseURL(baseURL)
		if err != nil {
			return nil, fmt.Errorf("サービス %q のベースURLが不正です: %w", def.Service, err)
		}

		bases[def.Service] = baseURL
		routes[def.Path] = Route{
			Path:      def.Path,
			Service:   def.Service,
			TargetURL: baseURL + def.Path,
			Protected: def.Protected,
		}
	}
	return &Table{routes: routes, bases: bases}, nil
}

// Resolve はパスに完全一致するルートを返す。
// 一致するルートが無い場合は ErrRouteNotFound を返す。
func (t *Table) Resolve(path string) (Route, error) {
	r, ok := t.routes[path]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	return r, nil
}

// BaseURL はサービスのベースURLを末尾のスラッシュ無しで返す。
// ルートから参照されていないサービスの場合はfalseを返す。
func (t *Table) BaseURL(service string) (string, bool) {
	u, ok := t.bases[service]
	return u, ok
}

// Routes は登録済みのルートをパス順に返す。
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// normalizeBaseURL は絶対URLであることを確認し、末尾のスラッシュを取り除く。
func normalizeBaseURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("URLが空です")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("絶対URLではありません: %q", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}
