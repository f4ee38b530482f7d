package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/farmtrack/apiserver/internal/auth"
	"github.com/farmtrack/apiserver/internal/services"
	"github.com/farmtrack/apiserver/internal/store"
	"github.com/farmtrack/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const tokenTypeBearer = "bearer"

// Authenticator recovers claims from a bearer token.
type Authenticator interface {
	Authenticate(token string) (auth.Claims, error)
}

// AuthHandler provides account and session endpoints.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		userService: userService,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, userService *services.UserService, logger *slog.Logger) {
	handler := NewAuthHandler(authService, userService, logger)
	requireAuth := RequireAuth(authService, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", handler.Me)
		r.Put("/user/password", handler.UpdatePassword)
		r.Put("/user/profile", handler.UpdateProfile)
	})
}

// RequireAuth validates the bearer token and injects its claims into the
// request context.
func RequireAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := authenticator.Authenticate(tokenString)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token", "reason", tokenRejection(err))
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register creates a new account and returns a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.authService.Register(r.Context(), services.RegisterInput{
		Email:         req.Email,
		Username:      req.Username,
		Password:      req.Password,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "missing required fields")
		case errors.Is(err, auth.ErrEmptyPassword), errors.Is(err, auth.ErrEncoding):
			writeError(w, http.StatusBadRequest, "invalid password")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "email already registered")
		default:
			h.logger.ErrorContext(r.Context(), "register user", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	h.writeSession(w, r, http.StatusCreated, user)
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.authService.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthFailure) {
			h.logger.WarnContext(r.Context(), "login rejected", "reason", err.Error())
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.ErrorContext(r.Context(), "login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	h.writeSession(w, r, http.StatusOK, user)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdatePassword replaces the caller's password after checking the old one.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PasswordUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err = h.authService.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrCredentialMismatch):
			writeError(w, http.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, auth.ErrEmptyPassword), errors.Is(err, auth.ErrEncoding):
			writeError(w, http.StatusBadRequest, "invalid password")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			h.logger.ErrorContext(r.Context(), "change password", "user_id", claims.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update password")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}

// UpdateProfile changes the caller's display username.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), claims.UserID, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "username is required")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, user types.User) {
	token, err := h.authService.IssueSession(user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "issue session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, status, AuthResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(h.authService.TokenTTL().Seconds()),
		User:        user,
	})
}

type RegisterRequest struct {
	Email         string `json:"email"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	AdminPassword string `json:"admin_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordUpdateRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type ProfileUpdateRequest struct {
	Username string `json:"username"`
}

type AuthResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        types.User `json:"user"`
}

func tokenRejection(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid signature"
	case errors.Is(err, auth.ErrMalformedClaims):
		return "malformed claims"
	default:
		return "malformed token"
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
