package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// defaultFileContentType はファイルパートのContent-Typeが未指定の場合の値。
const defaultFileContentType = "application/octet-stream"

// Body は転送するリクエストボディ。JSONBody か FormBody のどちらか。
type Body interface {
	// encode はボディをシリアライズし、Content-Typeと共に返す。
	encode() (io.Reader, string, error)
}

// JSONBody はJSONペイロードのボディ。Payloadがnilの場合は空オブジェクトを送る。
type JSONBody struct {
	Payload json.RawMessage
}

func (b JSONBody) encode() (io.Reader, string, error) {
	payload := b.Payload
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return nil, "", errors.New("JSONペイロードが不正です")
	}
	return bytes.NewReader(payload), "application/json", nil
}

// FormBody はmultipart/form-dataのボディ。パートは指定順に書き込む。
type FormBody struct {
	Parts []FormPart
}

// FormPart はフォームの1パート。File が nil の場合は文字列フィールドとして扱う。
type FormPart struct {
	// Name はフィールド名。
	Name string
	// Value は文字列フィールドの値。
	Value string
	// File はファイルパートの内容。
	File *File
}

// File はメモリに読み込んだアップロードファイル。
type File struct {
	// Filename は元のファイル名。
	Filename string
	// ContentType は宣言されたContent-Type。
	ContentType string
	// Content はファイルの中身。
	Content []byte
}

// ValuePart は文字列フィールドのパートを生成する。
func ValuePart(name, value string) FormPart {
	return FormPart{Name: name, Value: value}
}

// FilePart はファイルパートを生成する。
func FilePart(name, filename, contentType string, content []byte) FormPart {
	return FormPart{
		Name: name,
		File: &File{Filename: filename, ContentType: contentType, Content: content},
	}
}

func (b FormBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range b.Parts {
		if part.File == nil {
			if err := w.WriteField(part.Name, part.Value); err != nil {
				return nil, "", fmt.Errorf("フィールド %q の書き込みに失敗: %w", part.Name, err)
			}
			continue
		}

		contentType := part.File.ContentType
		if contentType == "" {
			contentType = defaultFileContentType
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(part.Name), escapeQuotes(part.File.Filename)))
		h.Set("Content-Type", contentType)

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("ファイルパート %q の作成に失敗: %w", part.Name, err)
		}
		if _, err := pw.Write(part.File.Content); err != nil {
			return nil, "", fmt.Errorf("ファイルパート %q の書き込みに失敗: %w", part.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipartボディの終端に失敗: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// escapeQuotes はContent-Dispositionのパラメータ値をエスケープする。
func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
