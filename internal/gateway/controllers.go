package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/apigateway/pkg/httpclient"
	"github.com/nao1215/apigateway/pkg/middleware"
	"github.com/nao1215/apigateway/pkg/route"
)

// 明示的なコントローラーが転送するパス。
const (
	pathLogin         = "/api/auth/token/"
	pathUsers         = "/api/accounts/users/"
	pathUserDocuments = "/api/accounts/user-documents/"
)

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Api Gateway Service is up and running.",
		})
	}
}

// handleLogin はトークン発行リクエストを検証してユーザーサービスへ転送するハンドラを返す。
// usernameとpasswordのどちらかが欠けている場合は422を返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := s.table.Resolve(pathLogin)
		if err != nil {
			abortMisconfigured(c, err)
			return
		}

		s.limitBody(c)
		raw, ok := s.readJSON(c)
		if !ok {
			return
		}

		var req loginRequest
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &req); err != nil {
				abortValidation(c, err, "body: value is not a valid object")
				return
			}
		}
		if err := validate.Struct(req); err != nil {
			abortValidation(c, err, validationDetail(err))
			return
		}

		payload, err := json.Marshal(req)
		if err != nil {
			abortMisconfigured(c, err)
			return
		}
		s.forward(c, r.Path, r.TargetURL, httpclient.JSONBody{Payload: payload})
	}
}

// handleGetUser は指定IDのユーザー情報をユーザーサービスから取得するハンドラを返す。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := s.table.Resolve(pathUsers)
		if err != nil {
			abortMisconfigured(c, err)
			return
		}

		p := userPath{ID: c.Param("id")}
		if err := validate.Struct(p); err != nil {
			abortValidation(c, err, validationDetail(err))
			return
		}
		s.forward(c, c.FullPath(), r.TargetURL+p.ID+"/", httpclient.JSONBody{})
	}
}

// handleUploadUserDocument はユーザー書類のアップロードをユーザーサービスへ転送するハンドラを返す。
// document_type、userのフィールドとdocumentのファイルが必須。
func (s *Server) handleUploadUserDocument() gin.HandlerFunc {
	return func(c *gin.Context) {
		base, ok := s.table.BaseURL(route.ServiceUsers)
		if !ok {
			abortMisconfigured(c, errors.New("usersサービスのベースURLが未設定です"))
			return
		}

		if c.ContentType() != gin.MIMEMultipartPOSTForm {
			abortValidation(c, errors.New("multipart/form-dataではありません"), "body: multipart/form-data is required")
			return
		}

		s.limitBody(c)
		form, ok := s.readForm(c)
		if !ok {
			return
		}
		doc := newUserDocumentForm(form)
		if err := validate.Struct(doc); err != nil {
			abortValidation(c, err, validationDetail(err))
			return
		}
		s.forward(c, pathUserDocuments, base+pathUserDocuments, doc.body())
	}
}

// abortValidation は入力の検証失敗を422で返す。
func abortValidation(c *gin.Context, err error, detail string) {
	middleware.RecordFailure(c, "ValidationFailed", err)
	middleware.AbortWithDetail(c, http.StatusUnprocessableEntity, detail)
}

// abortMisconfigured はルート設定の不備を503で返す。
func abortMisconfigured(c *gin.Context, err error) {
	middleware.RecordFailure(c, "Misconfigured", fmt.Errorf("ルート設定の不備: %w", err))
	middleware.AbortWithDetail(c, http.StatusServiceUnavailable, detailServiceUnavailable)
}
