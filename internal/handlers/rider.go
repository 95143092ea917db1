package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type RiderHandler struct {
	service *services.RiderService
}

func NewRiderHandler(service *services.RiderService) *RiderHandler {
	return &RiderHandler{service: service}
}

type riderApplication struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	District  string `json:"district" validate:"required"`
	Region    string `json:"region"`
	NID       string `json:"nid"`
	BikeModel string `json:"bikeModel"`
}

// Apply handles POST /riders
func (h *RiderHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req riderApplication
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rider := &models.Rider{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		District:  req.District,
		Region:    req.Region,
		NID:       req.NID,
		BikeModel: req.BikeModel,
	}
	if err := h.service.Apply(r.Context(), rider, auth.EmailFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"insertedId": rider.ID.Hex(),
		"rider":      rider,
	})
}

// List handles GET /riders
func (h *RiderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	riders, err := h.service.List(r.Context(), services.RiderFilter{
		Status:     models.RiderStatus(q.Get("status")),
		District:   q.Get("district"),
		WorkStatus: models.WorkStatus(q.Get("workStatus")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, riders)
}

type reviewRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// Review handles PATCH /riders/{id}
func (h *RiderHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rider, err := h.service.Review(r.Context(), mux.Vars(r)["id"], req.Status, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "rider": rider})
}

// Delete handles DELETE /riders/{id}
func (h *RiderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deletedId": id})
}
