package services

import (
	"context"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

// Repository methods return *apperror.Error values: NotFound for unknown ids
// and apperror.ErrDuplicateKey (wrapped) when a unique index rejects a write.
// Conditional updates report whether their precondition still matched.

type UserFilter struct {
	Search string
	Limit  int64
}

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	SetRole(ctx context.Context, id string, role models.Role) error
	SetRoleByEmail(ctx context.Context, email string, role models.Role) error
}

type ParcelFilter struct {
	SenderEmail      string
	RiderEmail       string
	DeliveryStatus   models.DeliveryStatus
	ExcludeDelivered bool
}

type ParcelRepository interface {
	Insert(ctx context.Context, parcel *models.Parcel) error
	FindByID(ctx context.Context, id string) (*models.Parcel, error)
	List(ctx context.Context, filter ParcelFilter) ([]models.Parcel, error)
	// MarkPaid only matches a parcel that is not paid yet.
	MarkPaid(ctx context.Context, id, trackingID string, at time.Time) (bool, error)
	// AssignRider only matches a paid parcel waiting for pickup.
	AssignRider(ctx context.Context, id string, assignment models.RiderAssignment, at time.Time) (bool, error)
	SetDeliveryStatus(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

type RiderFilter struct {
	Status     models.RiderStatus
	District   string
	WorkStatus models.WorkStatus
}

type RiderRepository interface {
	Insert(ctx context.Context, rider *models.Rider) error
	FindByID(ctx context.Context, id string) (*models.Rider, error)
	List(ctx context.Context, filter RiderFilter) ([]models.Rider, error)
	// Review sets the application status and derives the work status from it.
	// It reports false, changing nothing, when a decision other than approval
	// meets a rider that is in delivery.
	Review(ctx context.Context, id string, status models.RiderStatus, at time.Time) (bool, error)
	SetWorkStatus(ctx context.Context, id string, from, to models.WorkStatus) (bool, error)
	Delete(ctx context.Context, id string) error
}

type PaymentFilter struct {
	CustomerEmail string
	From          time.Time
	To            time.Time
}

type PaymentRepository interface {
	Insert(ctx context.Context, payment *models.Payment) error
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]models.Payment, error)
}

// TrackingLogRepository stores at most one entry per tracking id and status;
// inserting an existing pair is a successful no-op.
type TrackingLogRepository interface {
	Insert(ctx context.Context, entry *models.TrackingLog) error
	ListByTrackingID(ctx context.Context, trackingID string) ([]models.TrackingLog, error)
}

// Transactor runs fn atomically when the backing store supports it, and
// directly otherwise.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories the coordinators write to.
type Store struct {
	Users        UserRepository
	Parcels      ParcelRepository
	Riders       RiderRepository
	Payments     PaymentRepository
	TrackingLogs TrackingLogRepository
	Tx           Transactor
}

// Tracker records lifecycle transitions without failing the caller.
type Tracker interface {
	Append(trackingID string, status models.DeliveryStatus)
}

func (s Store) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.Tx == nil {
		return fn(ctx)
	}
	return s.Tx.WithTransaction(ctx, fn)
}
