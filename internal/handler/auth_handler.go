// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nvalencia/taskhub/internal/auth"
	"github.com/nvalencia/taskhub/internal/middleware"
	"github.com/nvalencia/taskhub/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password, email string) (*auth.RegisterResult, error)
	Login(ctx context.Context, username, password string) (string, error)
	VerifyOTP(ctx context.Context, bearerToken, code string) (string, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type registerResponse struct {
	Message   string `json:"message"`
	UserID    int64  `json:"user_id"`
	QRCodeURL string `json:"qrCodeUrl"`
}

// Register は新規ユーザーを登録する。
// POST /register
// 認証アプリに登録するためのotpauthプロビジョニングURIをqrCodeUrlとして返す。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewBadRequestError("リクエストボディが不正です。"))
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, registerResponse{
		Message:   "ユーザー登録が完了しました。",
		UserID:    result.UserID,
		QRCodeURL: result.ProvisioningURI,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	TempToken string `json:"tempToken"`
}

// Login はパスワード認証を行い、OTP検証待ちの一時トークンを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewBadRequestError("リクエストボディが不正です。"))
		return
	}

	tempToken, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, loginResponse{TempToken: tempToken})
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

type verifyOTPResponse struct {
	Token string `json:"token"`
}

// VerifyOTP は一時トークンとOTPコードを検証し、セッショントークンを発行する。
// POST /verify-otp（bearer: 一時トークン）
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewBadRequestError("リクエストボディが不正です。"))
		return
	}

	sessionToken, err := h.service.VerifyOTP(r.Context(), middleware.BearerToken(r), req.OTP)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, verifyOTPResponse{Token: sessionToken})
}
