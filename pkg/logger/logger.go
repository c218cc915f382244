// Package logger はゲートウェイ全体で使う構造化ロガーを生成する。
package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// New は指定レベル・形式のロガーを生成する。
// formatは "text" か "json"。空文字列の場合は "text" として扱う。
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("ログレベルが不正です: %w", err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lv)

	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("ログ形式が不正です: %q", format)
	}
	return l, nil
}

// Discard は出力を捨てるロガーを返す。テストで使用する。
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
