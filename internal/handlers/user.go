package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type signInRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// SignIn handles POST /users
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	caller := auth.EmailFromContext(r.Context())
	if req.Email == "" {
		req.Email = caller
	}
	if !strings.EqualFold(req.Email, caller) {
		writeError(w, r, apperror.Forbidden("forbidden access"))
		return
	}

	user := &models.User{Email: caller, DisplayName: req.DisplayName, PhotoURL: req.PhotoURL}
	inserted, err := h.service.SignIn(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, message := http.StatusOK, "user already exists"
	if inserted {
		status, message = http.StatusCreated, "user created"
	}
	writeJSON(w, status, map[string]interface{}{
		"success":  true,
		"inserted": inserted,
		"message":  message,
	})
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, apperror.Validation("limit must be a number"))
			return
		}
		limit = n
	}

	users, err := h.service.List(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Role handles GET /users/{email}/role
func (h *UserHandler) Role(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.RoleOf(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "role": role})
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// SetRole handles PATCH /users/{id}/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.SetRole(r.Context(), mux.Vars(r)["id"], req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "role updated"})
}

// isAdmin reports whether the authenticated caller holds the admin role.
// Callers without a user record are treated as plain users.
func isAdmin(r *http.Request, users *services.UserService) (bool, error) {
	role, err := users.RoleOf(r.Context(), auth.EmailFromContext(r.Context()))
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return role == models.RoleAdmin, nil
}
