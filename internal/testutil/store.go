// Package testutil provides in-memory repositories and fakes for service and
// handler tests. The repositories follow the same matching rules as the
// MongoDB implementations.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

// Memory holds every collection behind one lock.
type Memory struct {
	mu           sync.Mutex
	users        []models.User
	parcels      []models.Parcel
	riders       []models.Rider
	payments     []models.Payment
	trackingLogs []models.TrackingLog
}

func NewMemory() *Memory {
	return &Memory{}
}

// Store exposes m through the service repository interfaces.
func (m *Memory) Store() services.Store {
	return services.Store{
		Users:        memoryUsers{m},
		Parcels:      memoryParcels{m},
		Riders:       memoryRiders{m},
		Payments:     memoryPayments{m},
		TrackingLogs: memoryTrackingLogs{m},
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("invalid id")
	}
	return oid, nil
}

// Seed helpers insert documents directly, assigning ids when missing.

func (m *Memory) AddUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users = append(m.users, u)
	return u
}

func (m *Memory) AddParcel(p models.Parcel) models.Parcel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.parcels = append(m.parcels, p)
	return p
}

func (m *Memory) AddRider(r models.Rider) models.Rider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	m.riders = append(m.riders, r)
	return r
}

// Snapshots return copies of the stored documents.

func (m *Memory) User(email string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

func (m *Memory) Parcel(id primitive.ObjectID) (models.Parcel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parcels {
		if p.ID == id {
			return p, true
		}
	}
	return models.Parcel{}, false
}

func (m *Memory) Rider(id primitive.ObjectID) (models.Rider, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.riders {
		if r.ID == id {
			return r, true
		}
	}
	return models.Rider{}, false
}

func (m *Memory) Payments() []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Payment(nil), m.payments...)
}

func (m *Memory) TrackingLogs() []models.TrackingLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TrackingLog(nil), m.trackingLogs...)
}

type memoryUsers struct{ m *Memory }

func (r memoryUsers) Upsert(_ context.Context, user *models.User) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.users {
		if r.m.users[i].Email == user.Email {
			r.m.users[i].LastLoginAt = user.LastLoginAt
			*user = r.m.users[i]
			return false, nil
		}
	}
	user.ID = primitive.NewObjectID()
	r.m.users = append(r.m.users, *user)
	return true, nil
}

func (r memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r memoryUsers) List(_ context.Context, filter services.UserFilter) ([]models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	search := strings.ToLower(filter.Search)
	var out []models.User
	for _, u := range r.m.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.DisplayName), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memoryUsers) SetRole(_ context.Context, id string, role models.Role) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.users {
		if r.m.users[i].ID == oid {
			r.m.users[i].Role = role
			return nil
		}
	}
	return apperror.NotFound("user not found")
}

func (r memoryUsers) SetRoleByEmail(_ context.Context, email string, role models.Role) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.users {
		if r.m.users[i].Email == email {
			r.m.users[i].Role = role
			return nil
		}
	}
	return apperror.NotFound("user not found")
}

type memoryParcels struct{ m *Memory }

func (r memoryParcels) Insert(_ context.Context, parcel *models.Parcel) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if parcel.ID.IsZero() {
		parcel.ID = primitive.NewObjectID()
	}
	r.m.parcels = append(r.m.parcels, *parcel)
	return nil
}

func (r memoryParcels) find(id string) (*models.Parcel, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for i := range r.m.parcels {
		if r.m.parcels[i].ID == oid {
			return &r.m.parcels[i], nil
		}
	}
	return nil, apperror.NotFound("parcel not found")
}

func (r memoryParcels) FindByID(_ context.Context, id string) (*models.Parcel, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, err := r.find(id)
	if err != nil {
		return nil, err
	}
	out := *p
	return &out, nil
}

func (r memoryParcels) List(_ context.Context, filter services.ParcelFilter) ([]models.Parcel, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Parcel
	for _, p := range r.m.parcels {
		switch {
		case filter.SenderEmail != "" && p.SenderEmail != filter.SenderEmail:
			continue
		case filter.RiderEmail != "" && p.RiderEmail != filter.RiderEmail:
			continue
		case filter.DeliveryStatus != "" && p.DeliveryStatus != filter.DeliveryStatus:
			continue
		case filter.ExcludeDelivered && p.DeliveryStatus == models.StatusParcelDelivered:
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryParcels) MarkPaid(_ context.Context, id, trackingID string, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, err := r.find(id)
	if apperror.Is(err, apperror.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.PaymentStatus == models.PaymentPaid {
		return false, nil
	}
	p.PaymentStatus = models.PaymentPaid
	p.DeliveryStatus = models.StatusPendingPickup
	p.TrackingID = trackingID
	p.UpdatedAt = at
	return true, nil
}

func (r memoryParcels) AssignRider(_ context.Context, id string, a models.RiderAssignment, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, err := r.find(id)
	if apperror.Is(err, apperror.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.PaymentStatus != models.PaymentPaid || p.DeliveryStatus != models.StatusPendingPickup {
		return false, nil
	}
	p.DeliveryStatus = models.StatusDriverAssigned
	p.RiderID = a.RiderID
	p.RiderName = a.RiderName
	p.RiderEmail = a.RiderEmail
	p.UpdatedAt = at
	return true, nil
}

func (r memoryParcels) SetDeliveryStatus(_ context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, err := r.find(id)
	if apperror.Is(err, apperror.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.DeliveryStatus != from {
		return false, nil
	}
	p.DeliveryStatus = to
	p.UpdatedAt = at
	return true, nil
}

func (r memoryParcels) Delete(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.parcels {
		if r.m.parcels[i].ID == oid {
			r.m.parcels = append(r.m.parcels[:i], r.m.parcels[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("parcel not found")
}

type memoryRiders struct{ m *Memory }

func (r memoryRiders) Insert(_ context.Context, rider *models.Rider) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if rider.ID.IsZero() {
		rider.ID = primitive.NewObjectID()
	}
	r.m.riders = append(r.m.riders, *rider)
	return nil
}

func (r memoryRiders) find(id string) (*models.Rider, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for i := range r.m.riders {
		if r.m.riders[i].ID == oid {
			return &r.m.riders[i], nil
		}
	}
	return nil, apperror.NotFound("rider not found")
}

func (r memoryRiders) FindByID(_ context.Context, id string) (*models.Rider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rider, err := r.find(id)
	if err != nil {
		return nil, err
	}
	out := *rider
	return &out, nil
}

func (r memoryRiders) List(_ context.Context, filter services.RiderFilter) ([]models.Rider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Rider
	for _, rider := range r.m.riders {
		switch {
		case filter.Status != "" && rider.Status != filter.Status:
			continue
		case filter.District != "" && rider.District != filter.District:
			continue
		case filter.WorkStatus != "" && rider.WorkStatus != filter.WorkStatus:
			continue
		}
		out = append(out, rider)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryRiders) Review(_ context.Context, id string, status models.RiderStatus, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rider, err := r.find(id)
	if err != nil {
		return false, err
	}
	switch {
	case status == models.RiderApproved:
		if rider.WorkStatus != models.WorkInDelivery {
			rider.WorkStatus = models.WorkAvailable
		}
	case rider.WorkStatus == models.WorkInDelivery:
		return false, nil
	default:
		rider.WorkStatus = ""
	}
	rider.Status = status
	rider.ReviewedAt = &at
	return true, nil
}

func (r memoryRiders) SetWorkStatus(_ context.Context, id string, from, to models.WorkStatus) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rider, err := r.find(id)
	if apperror.Is(err, apperror.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rider.WorkStatus != from {
		return false, nil
	}
	rider.WorkStatus = to
	return true, nil
}

func (r memoryRiders) Delete(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.riders {
		if r.m.riders[i].ID == oid {
			r.m.riders = append(r.m.riders[:i], r.m.riders[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("rider not found")
}

type memoryPayments struct{ m *Memory }

func (r memoryPayments) Insert(_ context.Context, payment *models.Payment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.payments {
		if p.TransactionID == payment.TransactionID {
			return apperror.Wrap(apperror.KindConflict, apperror.ErrDuplicateKey, "payment already recorded")
		}
	}
	payment.ID = primitive.NewObjectID()
	r.m.payments = append(r.m.payments, *payment)
	return nil
}

func (r memoryPayments) FindByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.payments {
		if p.TransactionID == transactionID {
			return &p, nil
		}
	}
	return nil, apperror.NotFound("payment not found")
}

func (r memoryPayments) List(_ context.Context, filter services.PaymentFilter) ([]models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Payment
	for _, p := range r.m.payments {
		switch {
		case filter.CustomerEmail != "" && p.CustomerEmail != filter.CustomerEmail:
			continue
		case !filter.From.IsZero() && p.PaidAt.Before(filter.From):
			continue
		case !filter.To.IsZero() && p.PaidAt.After(filter.To):
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

type memoryTrackingLogs struct{ m *Memory }

func (r memoryTrackingLogs) Insert(_ context.Context, entry *models.TrackingLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.trackingLogs {
		if l.TrackingID == entry.TrackingID && l.Status == entry.Status {
			return nil
		}
	}
	entry.ID = primitive.NewObjectID()
	r.m.trackingLogs = append(r.m.trackingLogs, *entry)
	return nil
}

func (r memoryTrackingLogs) ListByTrackingID(_ context.Context, trackingID string) ([]models.TrackingLog, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.TrackingLog
	for _, l := range r.m.trackingLogs {
		if l.TrackingID == trackingID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
