package handler

import (
	"encoding/json"
	"net/http"

	"offerhub-catalogue-api/internal/middleware"
	"offerhub-catalogue-api/internal/service"
	"offerhub-catalogue-api/pkg/apierror"
	"offerhub-catalogue-api/pkg/response"
)

// AuthHandler handles user registration and token issuance.
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{
		users: users,
	}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Email string `json:"email"`
}

// Register handles POST /api/v1/auth
// Returns 201 with a fresh access token for a new email, 200 with the
// existing token otherwise.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Email == "" {
		response.Error(w, apierror.BadRequest("email is required"))
		return
	}

	user, created, err := h.users.Register(r.Context(), req.Email)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to register user"))
		return
	}

	if created {
		response.Created(w, user)
		return
	}
	response.OK(w, user)
}

// Me handles GET /api/v1/auth/me
// Returns the user the presented access token resolved to.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		response.Error(w, apierror.Forbidden("Access token required"))
		return
	}
	response.OK(w, user)
}
