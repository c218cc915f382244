package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nao1215/apigateway/pkg/route"
	"github.com/spf13/viper"
)

// Config はゲートウェイの設定。
type Config struct {
	// SecretKey はアクセストークンの署名検証に使う共有鍵。
	SecretKey string `mapstructure:"secret_key" validate:"required"`
	// UsersServiceURL はユーザーサービスのベースURL。
	UsersServiceURL string `mapstructure:"users_service_url" validate:"required,url"`
	// EventsServiceURL はイベントサービスのベースURL。
	EventsServiceURL string `mapstructure:"events_service_url" validate:"required,url"`
	// GatewayTimeout は転送1回あたりの制限時間（秒）。
	GatewayTimeout int `mapstructure:"gateway_timeout" validate:"gt=0"`
	// Port はリッスンポート。
	Port int `mapstructure:"port" validate:"gt=0,lt=65536"`
	// LogLevel はログレベル。
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	// LogFormat はログ形式。
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
	// CORSOrigins はCORSで許可するオリジン。"*"は全て許可する。
	CORSOrigins []string `mapstructure:"cors_origins" validate:"min=1,dive,required"`
	// MaxUploadBytes はリクエストボディの上限バイト数。0は無制限。
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gte=0"`
	// RateLimit はクライアントIPごとの毎秒リクエスト数の上限。0は無制限。
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	// RateLimitBurst は瞬間的に許可するリクエスト数。
	RateLimitBurst int `mapstructure:"rate_limit_burst" validate:"gte=1"`
}

// envBindings は設定キーと環境変数名の対応。
var envBindings = map[string]string{
	"secret_key":         "SECRET_KEY",
	"users_service_url":  "USERS_SERVICE_URL",
	"events_service_url": "EVENTS_SERVICE_URL",
	"gateway_timeout":    "GATEWAY_TIMEOUT",
	"port":               "PORT",
	"log_level":          "LOG_LEVEL",
	"log_format":         "LOG_FORMAT",
	"cors_origins":       "CORS_ORIGINS",
	"max_upload_bytes":   "GATEWAY_MAX_UPLOAD_BYTES",
	"rate_limit":         "GATEWAY_RATE_LIMIT",
	"rate_limit_burst":   "GATEWAY_RATE_LIMIT_BURST",
}

// Load は設定を読み込んで検証する。
// pathが空でなければYAMLの設定ファイルを読み込み、環境変数で上書きする。
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("gateway_timeout", 59)
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("max_upload_bytes", 0)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_limit_burst", 20)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("環境変数 %s のバインドに失敗: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の展開に失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値を検証する。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("設定の検証に失敗 (validation failed): %s", describe(verrs))
		}
		return fmt.Errorf("設定の検証に失敗 (validation failed): %w", err)
	}
	return nil
}

// Timeout は転送1回あたりの制限時間を返す。
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.GatewayTimeout) * time.Second
}

// Services はサービス名とベースURLの対応を返す。
func (c *Config) Services() map[string]string {
	return map[string]string{
		route.ServiceUsers:  c.UsersServiceURL,
		route.ServiceEvents: c.EventsServiceURL,
	}
}

// describe は検証エラーを環境変数名で列挙する。
func describe(verrs validator.ValidationErrors) string {
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += ", "
		}
		name := fe.Field()
		if tagged, ok := fieldEnv[name]; ok {
			name = tagged
		}
		msg += fmt.Sprintf("%s(%s)", name, fe.Tag())
	}
	return msg
}

// fieldEnv は構造体のフィールド名と環境変数名の対応。
var fieldEnv = map[string]string{
	"SecretKey":        "SECRET_KEY",
	"UsersServiceURL":  "USERS_SERVICE_URL",
	"EventsServiceURL": "EVENTS_SERVICE_URL",
	"GatewayTimeout":   "GATEWAY_TIMEOUT",
	"Port":             "PORT",
	"LogLevel":         "LOG_LEVEL",
	"LogFormat":        "LOG_FORMAT",
	"CORSOrigins":      "CORS_ORIGINS",
	"MaxUploadBytes":   "GATEWAY_MAX_UPLOAD_BYTES",
	"RateLimit":        "GATEWAY_RATE_LIMIT",
	"RateLimitBurst":   "GATEWAY_RATE_LIMIT_BURST",
}
