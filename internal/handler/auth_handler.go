// Package handler provides the HTTP API for the Candela backend.
package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/auth"
	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/service"
)

// LoginMetrics records login attempts. Satisfied by metrics.Metrics;
// nil disables recording.
type LoginMetrics interface {
	RecordLogin(result string)
}

// AuthHandler exposes registration, login and profile endpoints.
type AuthHandler struct {
	authService   *service.AuthService
	userService   *service.UserService
	authenticator *auth.Authenticator
	metrics       LoginMetrics
	logger        zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	userService *service.UserService,
	authenticator *auth.Authenticator,
	m LoginMetrics,
	logger zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		userService:   userService,
		authenticator: authenticator,
		metrics:       m,
		logger:        logger.With().Str("handler", "auth").Logger(),
	}
}

// =============================================================================
// Request/Response Types
// =============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	APIKey   string `json:"api_key,omitempty"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
	User      userResponse `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type createAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type updateProfileRequest struct {
	FullName       *string `json:"full_name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// userResponse is the public view of a user. The password hash never
// crosses this boundary.
type userResponse struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	IsAdmin        bool   `json:"is_admin"`
	CreatedAt      string `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Phone:          u.Phone,
		ProfilePicture: u.ProfilePicture,
		IsAdmin:        u.IsAdmin,
		CreatedAt:      u.CreatedAt.Format(timeFormat),
	}
}

// =============================================================================
// Handlers
// =============================================================================

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readJSON(w, r, &req) {
		return
	}

	output, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		APIKey:   req.APIKey,
	})
	if err != nil {
		h.recordLogin("failure")
		writeServiceError(w, err)
		return
	}

	h.recordLogin("success")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     output.Token,
		ExpiresIn: output.ExpiresIn,
		User: userResponse{
			ID:       output.UserID,
			Email:    output.Email,
			FullName: output.FullName,
			IsAdmin:  output.IsAdmin,
		},
	})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !readJSON(w, r, &req) {
		return
	}

	output, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(output.User))
}

// CreateAdmin handles POST /api/auth/create-admin. The admin API key
// comes from the X-API-Key header, not the body.
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if !readJSON(w, r, &req) {
		return
	}

	output, err := h.authService.CreateAdmin(r.Context(), service.CreateAdminInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		AdminAPIKey: r.Header.Get("X-API-Key"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(output.User))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile handles PATCH /api/auth/me.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProfileRequest
	if !readJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), service.UpdateProfileInput{
		UserID:         principal.UserID,
		FullName:       req.FullName,
		Phone:          req.Phone,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.authenticator.InvalidatePrincipal(r.Context(), principal.UserID)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logout
// only drops the cached principal; the client discards the token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if principal, ok := auth.PrincipalFrom(r.Context()); ok {
		h.authenticator.InvalidatePrincipal(r.Context(), principal.UserID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers handles GET /api/auth/users. Admin only.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := paginationParams(r)

	output, err := h.userService.List(r.Context(), service.ListUsersInput{
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	users := make([]userResponse, 0, len(output.Users))
	for _, u := range output.Users {
		users = append(users, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": output.Total,
	})
}

// DeleteUser handles DELETE /api/auth/users/{id}. Admin only.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if principal, ok := auth.PrincipalFrom(r.Context()); ok && principal.UserID == id {
		writeError(w, http.StatusConflict, "cannot delete your own account")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.authenticator.InvalidatePrincipal(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) recordLogin(result string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(result)
	}
}
