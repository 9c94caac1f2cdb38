// Package api implements the marketplace's JSON HTTP handlers.
package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/marketplace/internal/cookie"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/middleware"
	"github.com/dukerupert/marketplace/internal/service"
)

// AuthHandler handles signup, login, logout and the current user.
type AuthHandler struct {
	users   service.UserService
	cookies *cookie.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users service.UserService, cookies *cookie.Config) *AuthHandler {
	return &AuthHandler{users: users, cookies: cookies}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := handler.Decode(r, &req, "auth.signup"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	user, err := h.users.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login. The token is returned in the body for
// API clients and set as a cookie for browsers.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := handler.Decode(r, &req, "auth.login"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	user, session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.cookies.SetSession(w, session.Token, session.ExpiresAt)
	handler.JSON(w, http.StatusOK, sessionResponse{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}
	h.cookies.ClearSession(w)
	handler.NoContent(w)
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	handler.JSON(w, http.StatusOK, middleware.GetUserFromContext(r.Context()))
}
