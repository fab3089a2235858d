package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	ua "github.com/mileusna/useragent"

	"github.com/fnxL/favorit/internal/domain"
	"github.com/fnxL/favorit/internal/service"
	"github.com/fnxL/favorit/pkg/middleware"
	"github.com/fnxL/favorit/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	facade *service.AuthFacade
	logger *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(facade *service.AuthFacade, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{facade: facade, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login. Exactly one of username or
// email must be set; which one is decided here and nowhere else.
type LoginRequest struct {
	Username string `json:"username" validate:"omitempty,min=1,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the JSON request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest is the JSON request body for logout. The token is optional:
// logging out with nothing to revoke still succeeds.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// --- Response types ---

// LoginResponse wraps the session owner and the minted token pair.
type LoginResponse struct {
	User    domain.Identity   `json:"user"`
	Session SessionResponse   `json:"session"`
	Tokens  *domain.TokenPair `json:"tokens"`
}

// SessionResponse is the client-facing view of a session.
type SessionResponse struct {
	ID      string `json:"id"`
	Device  string `json:"device,omitempty"`
	OS      string `json:"os,omitempty"`
	Browser string `json:"browser,omitempty"`
}

// --- Handlers ---

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	var creds domain.Credentials
	switch {
	case req.Email != "" && req.Username != "":
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "provide either username or email, not both"},
		})
		return
	case req.Email != "":
		creds = domain.EmailCredentials(req.Email, req.Password)
	case req.Username != "":
		creds = domain.UsernameCredentials(req.Username, req.Password)
	default:
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "username or email is required"},
		})
		return
	}

	session, tokens, err := h.facade.Login(r.Context(), creds, deviceInfoFromRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: LoginResponse{
			User: session.User,
			Session: SessionResponse{
				ID:      session.ID,
				Device:  session.Device,
				OS:      session.OS,
				Browser: session.Browser,
			},
			Tokens: tokens,
		},
	})
}

// RefreshToken handles POST /api/v1/auth/token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	tokens, err := h.facade.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: tokens})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	// A missing or malformed body is treated as an empty token: logout is
	// always safe to call.
	var req LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.facade.Logout(r.Context(), req.RefreshToken); err != nil {
		writeAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	if err := h.facade.LogoutAll(r.Context(), userID); err != nil {
		writeAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// deviceInfoFromRequest derives session metadata from the User-Agent header.
func deviceInfoFromRequest(r *http.Request) domain.DeviceInfo {
	parsed := ua.Parse(r.UserAgent())

	device := parsed.Device
	switch {
	case device != "":
	case parsed.Mobile:
		device = "mobile"
	case parsed.Tablet:
		device = "tablet"
	case parsed.Desktop:
		device = "desktop"
	}

	return domain.DeviceInfo{
		Device:  device,
		OS:      parsed.OS,
		Browser: parsed.Name,
	}
}
