package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nao1215/apigateway/pkg/httpclient"
)

// loginRequest はトークン発行リクエストのボディ。
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// userPath はユーザー取得のパスパラメータ。
type userPath struct {
	ID string `json:"id" validate:"required,number"`
}

// userDocumentForm はユーザー書類アップロードのフォーム。
type userDocumentForm struct {
	DocumentType string           `json:"document_type" validate:"required"`
	User         string           `json:"user" validate:"required"`
	Document     *httpclient.File `json:"document" validate:"required"`
}

// body は書類アップロードを転送用のフォームに変換する。
func (f userDocumentForm) body() httpclient.FormBody {
	return httpclient.FormBody{Parts: []httpclient.FormPart{
		httpclient.ValuePart("user", f.User),
		httpclient.ValuePart("document_type", f.DocumentType),
		httpclient.FilePart("document", f.Document.Filename, f.Document.ContentType, f.Document.Content),
	}}
}

// newUserDocumentForm は受信したフォームのパートから書類アップロードのフォームを組み立てる。
// 同じ名前のパートが複数ある場合は最初のものを使う。
func newUserDocumentForm(form httpclient.FormBody) userDocumentForm {
	var f userDocumentForm
	seen := make(map[string]bool, len(form.Parts))
	for _, p := range form.Parts {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		switch p.Name {
		case "document_type":
			f.DocumentType = p.Value
		case "user":
			f.User = p.Value
		case "document":
			f.Document = p.File
		}
	}
	return f
}

// validate はリクエストスキーマの検証器。フィールド名はJSONのキー名で報告する。
var validate = newValidator()

// newValidator はJSONのキー名でエラーを報告する検証器を生成する。
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationDetail は検証エラーをレスポンスのメッセージに変換する。
func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: field required", fe.Field()))
		case "number":
			msgs = append(msgs, fmt.Sprintf("%s: value is not a valid integer", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}
