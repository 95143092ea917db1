package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type Services struct {
	Users    *services.UserService
	Riders   *services.RiderService
	Parcels  *services.ParcelService
	Payments *services.PaymentService
	Tracking TrackingReader
}

// NewRouter wires every route. Everything except the health check and the
// public tracking history requires a verified bearer token.
func NewRouter(svc Services, verifier auth.Verifier) *mux.Router {
	users := NewUserHandler(svc.Users)
	parcels := NewParcelHandler(svc.Parcels, svc.Users)
	payments := NewPaymentHandler(svc.Payments, svc.Users)
	riders := NewRiderHandler(svc.Riders)
	tracking := NewTrackingHandler(svc.Tracking)

	r := mux.NewRouter()
	r.Use(requestID)

	r.HandleFunc("/", health).Methods(http.MethodGet)
	r.HandleFunc("/trackings/{trackingId}/logs", tracking.Logs).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(auth.Middleware(verifier))

	admin := requireRole(svc.Users, models.RoleAdmin)
	riderOrAdmin := requireRole(svc.Users, models.RoleRider, models.RoleAdmin)

	api.HandleFunc("/users", users.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/users", users.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{email}/role", users.Role).Methods(http.MethodGet)
	api.Handle("/users/{id}/role", admin(http.HandlerFunc(users.SetRole))).Methods(http.MethodPatch)

	api.HandleFunc("/parcels", parcels.Create).Methods(http.MethodPost)
	api.HandleFunc("/parcels", parcels.List).Methods(http.MethodGet)
	// Registered before /parcels/{id} so "rider" is not taken as an id.
	api.Handle("/parcels/rider", riderOrAdmin(http.HandlerFunc(parcels.ListForRider))).Methods(http.MethodGet)
	api.HandleFunc("/parcels/{id}", parcels.Get).Methods(http.MethodGet)
	api.HandleFunc("/parcels/{id}", parcels.Delete).Methods(http.MethodDelete)
	api.Handle("/parcels/{id}", admin(http.HandlerFunc(parcels.Assign))).Methods(http.MethodPatch)
	api.Handle("/parcels/{id}/status", riderOrAdmin(http.HandlerFunc(parcels.UpdateStatus))).Methods(http.MethodPatch)

	api.HandleFunc("/create-checkout-session", payments.CreateCheckoutSession).Methods(http.MethodPost)
	api.HandleFunc("/payment-success", payments.ConfirmPayment).Methods(http.MethodPatch)
	api.HandleFunc("/payments", payments.History).Methods(http.MethodGet)

	api.HandleFunc("/riders", riders.Apply).Methods(http.MethodPost)
	api.HandleFunc("/riders", riders.List).Methods(http.MethodGet)
	api.Handle("/riders/{id}", admin(http.HandlerFunc(riders.Review))).Methods(http.MethodPatch)
	api.Handle("/riders/{id}", admin(http.HandlerFunc(riders.Delete))).Methods(http.MethodDelete)

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "zapshift server is running"})
}
