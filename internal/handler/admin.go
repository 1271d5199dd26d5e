package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/server/middleware"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
)

// AdminHandler serves admin sessions and admin account management.
type AdminHandler struct {
	auth         *service.AuthService
	cookieSecure bool
	logger       *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. cookieSecure sets the Secure
// attribute on the session cookie and should be on behind TLS.
func NewAdminHandler(auth *service.AuthService, cookieSecure bool, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		auth:         auth,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginAdmin struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

type loginResponse struct {
	Message string     `json:"message"`
	Admin   loginAdmin `json:"admin"`
}

// Login verifies credentials and sets the session cookie.
// POST /api/v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.auth.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(sess.ExpiresIn.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		Admin: loginAdmin{
			ID:       sess.Admin.ID,
			Username: sess.Admin.Username,
			Role:     sess.Admin.Role,
		},
	})
}

// Logout clears the session cookie. Tokens are stateless, so nothing is
// revoked server side.
// POST /api/v1/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated admin.
// GET /api/v1/admin/me
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// ---------------------------------------------------------------------------
// Account management
// ---------------------------------------------------------------------------

// ListAdmins returns all admin accounts.
// GET /api/v1/admin/users
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.auth.ListAdmins(r.Context())
	if err != nil {
		h.logger.Error("list admins failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list admins")
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: admins,
		Meta: &model.ResponseMeta{
			Count: len(admins),
		},
	})
}

// CreateAdmin creates a new admin account. Only ADMIN users may do this.
// POST /api/v1/admin/users
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var body model.AdminCreate
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	body.Role = model.Role(strings.ToUpper(string(body.Role)))

	admin, err := h.auth.CreateAdmin(r.Context(), middleware.GetAdmin(r.Context()), body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "Only ADMIN users can create new admin users")
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "Username already exists")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("create admin failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create admin")
		}
		return
	}

	writeJSON(w, http.StatusCreated, admin)
}

type adminUpdateRequest struct {
	IsActive *bool `json:"is_active"`
}

// UpdateAdmin activates or deactivates an admin account.
// PATCH /api/v1/admin/users/{id}
func (h *AdminHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid admin id")
		return
	}

	var body adminUpdateRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.IsActive == nil {
		writeError(w, http.StatusUnprocessableEntity, "is_active is required")
		return
	}

	admin, err := h.auth.SetAdminActive(r.Context(), middleware.GetAdmin(r.Context()), id, *body.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "Only ADMIN users can manage admin users")
		case errors.Is(err, service.ErrAdminNotFound):
			writeError(w, http.StatusNotFound, "Admin not found")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("update admin failed", "admin_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to update admin")
		}
		return
	}

	writeJSON(w, http.StatusOK, admin)
}
