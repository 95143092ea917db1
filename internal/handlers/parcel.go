package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type ParcelHandler struct {
	service *services.ParcelService
	users   *services.UserService
}

func NewParcelHandler(service *services.ParcelService, users *services.UserService) *ParcelHandler {
	return &ParcelHandler{service: service, users: users}
}

type parcelRequest struct {
	ParcelType       string  `json:"parcelType"`
	ParcelName       string  `json:"parcelName" validate:"required"`
	ParcelWeight     float64 `json:"parcelWeight" validate:"gte=0"`
	SenderName       string  `json:"senderName"`
	SenderEmail      string  `json:"senderEmail" validate:"omitempty,email"`
	SenderDistrict   string  `json:"senderDistrict"`
	SenderAddress    string  `json:"senderAddress"`
	ReceiverName     string  `json:"receiverName" validate:"required"`
	ReceiverPhone    string  `json:"receiverPhone"`
	ReceiverDistrict string  `json:"receiverDistrict"`
	ReceiverAddress  string  `json:"receiverAddress" validate:"required"`
	Cost             float64 `json:"cost" validate:"gt=0"`
}

// Create handles POST /parcels
func (h *ParcelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req parcelRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.SenderEmail == "" {
		req.SenderEmail = auth.EmailFromContext(r.Context())
	}

	parcel := &models.Parcel{
		ParcelType:       req.ParcelType,
		ParcelName:       req.ParcelName,
		ParcelWeight:     req.ParcelWeight,
		SenderName:       req.SenderName,
		SenderEmail:      req.SenderEmail,
		SenderDistrict:   req.SenderDistrict,
		SenderAddress:    req.SenderAddress,
		ReceiverName:     req.ReceiverName,
		ReceiverPhone:    req.ReceiverPhone,
		ReceiverDistrict: req.ReceiverDistrict,
		ReceiverAddress:  req.ReceiverAddress,
		Cost:             req.Cost,
	}
	if err := h.service.Create(r.Context(), parcel); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"insertedId": parcel.ID.Hex(),
		"parcel":     parcel,
	})
}

// List handles GET /parcels. Non admins only see their own parcels.
func (h *ParcelHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := auth.EmailFromContext(r.Context())
	email := r.URL.Query().Get("email")

	if email == "" || !strings.EqualFold(email, caller) {
		admin, err := isAdmin(r, h.users)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !admin {
			if email != "" {
				writeError(w, r, apperror.Forbidden("forbidden access"))
				return
			}
			email = caller
		}
	}

	parcels, err := h.service.List(r.Context(), email, r.URL.Query().Get("deliveryStatus"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parcels)
}

// ListForRider handles GET /parcels/rider
func (h *ParcelHandler) ListForRider(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	riderEmail := r.URL.Query().Get("riderEmail")
	if caller != nil && caller.Role == models.RoleRider {
		if riderEmail != "" && !strings.EqualFold(riderEmail, caller.Email) {
			writeError(w, r, apperror.Forbidden("forbidden access"))
			return
		}
		riderEmail = caller.Email
	}

	parcels, err := h.service.ListForRider(r.Context(), riderEmail, r.URL.Query().Get("deliveryStatus"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parcels)
}

// Get handles GET /parcels/{id}
func (h *ParcelHandler) Get(w http.ResponseWriter, r *http.Request) {
	parcel, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parcel)
}

// Delete handles DELETE /parcels/{id}
func (h *ParcelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, err := isAdmin(r, h.users)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.service.Delete(r.Context(), id, auth.EmailFromContext(r.Context()), admin); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deletedId": id})
}

type assignRequest struct {
	RiderID    string `json:"riderId" validate:"required"`
	RiderName  string `json:"riderName"`
	RiderEmail string `json:"riderEmail" validate:"omitempty,email"`
	TrackingID string `json:"trackingId"`
}

// Assign handles PATCH /parcels/{id}
func (h *ParcelHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	parcel, err := h.service.Assign(r.Context(), services.AssignRequest{
		ParcelID:   mux.Vars(r)["id"],
		RiderID:    req.RiderID,
		RiderName:  req.RiderName,
		RiderEmail: req.RiderEmail,
		TrackingID: req.TrackingID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "parcel": parcel})
}

type statusRequest struct {
	DeliveryStatus string `json:"deliveryStatus" validate:"required"`
	RiderID        string `json:"riderId"`
	TrackingID     string `json:"trackingId"`
}

// UpdateStatus handles PATCH /parcels/{id}/status
func (h *ParcelHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	parcel, err := h.service.UpdateStatus(r.Context(), services.StatusUpdate{
		ParcelID:       mux.Vars(r)["id"],
		DeliveryStatus: req.DeliveryStatus,
		RiderID:        req.RiderID,
		TrackingID:     req.TrackingID,
	}, callerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "parcel": parcel})
}
