package handlers

import (
	"net/http"
	"strings"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type PaymentHandler struct {
	service *services.PaymentService
	users   *services.UserService
}

func NewPaymentHandler(service *services.PaymentService, users *services.UserService) *PaymentHandler {
	return &PaymentHandler{service: service, users: users}
}

type checkoutRequest struct {
	ParcelID string `json:"parcelId" validate:"required"`
}

// CreateCheckoutSession handles POST /create-checkout-session
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	url, err := h.service.CreateCheckoutSession(r.Context(), req.ParcelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ConfirmPayment handles PATCH /payment-success?session_id=...
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeError(w, r, apperror.Validation("session_id is required"))
		return
	}

	confirmation, err := h.service.ConfirmPayment(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmation)
}

// History handles GET /payments. Filtering by another caller's email is
// forbidden; without a filter admins see every payment and everyone else
// their own.
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	caller := auth.EmailFromContext(r.Context())
	email := q.Get("email")
	if email != "" && !strings.EqualFold(email, caller) {
		writeError(w, r, apperror.Forbidden("forbidden access"))
		return
	}
	if email == "" {
		admin, err := isAdmin(r, h.users)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !admin {
			email = caller
		}
	}

	filter, err := services.NewPaymentFilter(email, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.service.History(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
