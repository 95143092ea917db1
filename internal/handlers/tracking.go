package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

// TrackingReader returns the history recorded for a tracking id.
type TrackingReader interface {
	Logs(ctx context.Context, trackingID string) ([]models.TrackingLog, error)
}

type TrackingHandler struct {
	reader TrackingReader
}

func NewTrackingHandler(reader TrackingReader) *TrackingHandler {
	return &TrackingHandler{reader: reader}
}

// Logs handles GET /trackings/{trackingId}/logs
func (h *TrackingHandler) Logs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.reader.Logs(r.Context(), mux.Vars(r)["trackingId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.TrackingLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
