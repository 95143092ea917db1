package services

import (
	"context"
	"strings"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/statemachine"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParcelService coordinates parcel creation, rider assignment and delivery
// progress. Every transition is checked against the delivery state machine
// and recorded through the tracker.
type ParcelService struct {
	store   Store
	tracker Tracker
}

func NewParcelService(store Store, tracker Tracker) *ParcelService {
	return &ParcelService{store: store, tracker: tracker}
}

// AssignRequest names the parcel and the rider that should pick it up.
// RiderEmail and TrackingID are optional cross-checks.
type AssignRequest struct {
	ParcelID   string
	RiderID    string
	RiderName  string
	RiderEmail string
	TrackingID string
}

type StatusUpdate struct {
	ParcelID       string
	DeliveryStatus string
	RiderID        string
	TrackingID     string
}

// Create stores a new unpaid parcel. Lifecycle fields sent by the client are
// discarded.
func (s *ParcelService) Create(ctx context.Context, parcel *models.Parcel) error {
	parcel.ParcelName = strings.TrimSpace(parcel.ParcelName)
	parcel.SenderEmail = strings.TrimSpace(parcel.SenderEmail)
	switch {
	case parcel.ParcelName == "":
		return apperror.Validation("parcelName is required")
	case parcel.SenderEmail == "":
		return apperror.Validation("senderEmail is required")
	case strings.TrimSpace(parcel.ReceiverName) == "":
		return apperror.Validation("receiverName is required")
	case strings.TrimSpace(parcel.ReceiverAddress) == "":
		return apperror.Validation("receiverAddress is required")
	case parcel.Cost <= 0:
		return apperror.Validation("cost must be greater than zero")
	}

	now := time.Now().UTC()
	parcel.ID = primitive.NilObjectID
	parcel.PaymentStatus = models.PaymentUnpaid
	parcel.DeliveryStatus = models.StatusCreated
	parcel.TrackingID = ""
	parcel.RiderID = ""
	parcel.RiderName = ""
	parcel.RiderEmail = ""
	parcel.CreatedAt = now
	parcel.UpdatedAt = now

	if err := s.store.Parcels.Insert(ctx, parcel); err != nil {
		logger.Error("failed to create parcel", err, "senderEmail", parcel.SenderEmail)
		return err
	}
	logger.Info("parcel created", "parcelId", parcel.ID.Hex(), "senderEmail", parcel.SenderEmail)
	return nil
}

func (s *ParcelService) Get(ctx context.Context, id string) (*models.Parcel, error) {
	return s.store.Parcels.FindByID(ctx, id)
}

// List returns the parcels sent by senderEmail, newest first. An empty email
// lists every parcel.
func (s *ParcelService) List(ctx context.Context, senderEmail, deliveryStatus string) ([]models.Parcel, error) {
	filter := ParcelFilter{SenderEmail: strings.TrimSpace(senderEmail)}
	if deliveryStatus != "" {
		status, err := statemachine.ParseStatus(deliveryStatus)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindValidation, err, err.Error())
		}
		filter.DeliveryStatus = status
	}
	return s.store.Parcels.List(ctx, filter)
}

// ListForRider returns the parcels assigned to riderEmail. Delivered parcels
// are only included when that status is asked for.
func (s *ParcelService) ListForRider(ctx context.Context, riderEmail, deliveryStatus string) ([]models.Parcel, error) {
	riderEmail = strings.TrimSpace(riderEmail)
	if riderEmail == "" {
		return nil, apperror.Validation("riderEmail is required")
	}
	filter := ParcelFilter{RiderEmail: riderEmail, ExcludeDelivered: true}
	if deliveryStatus != "" {
		status, err := statemachine.ParseStatus(deliveryStatus)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindValidation, err, err.Error())
		}
		filter.DeliveryStatus = status
		filter.ExcludeDelivered = false
	}
	return s.store.Parcels.List(ctx, filter)
}

// Assign hands a paid parcel waiting for pickup to an available approved
// rider. The rider is claimed first so two parcels can never share one.
func (s *ParcelService) Assign(ctx context.Context, req AssignRequest) (*models.Parcel, error) {
	parcel, err := s.store.Parcels.FindByID(ctx, req.ParcelID)
	if err != nil {
		return nil, err
	}
	if parcel.PaymentStatus != models.PaymentPaid {
		return nil, apperror.Conflict("parcel has not been paid for")
	}
	if err := statemachine.CanTransition(parcel.DeliveryStatus, models.StatusDriverAssigned, statemachine.TriggerAssignment); err != nil {
		return nil, apperror.Wrap(apperror.KindConflict, err, err.Error())
	}
	if req.TrackingID != "" && req.TrackingID != parcel.TrackingID {
		return nil, apperror.Validation("tracking id does not match parcel")
	}

	rider, err := s.store.Riders.FindByID(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}
	if rider.Status != models.RiderApproved {
		return nil, apperror.Conflict("rider is not approved")
	}
	if rider.WorkStatus != models.WorkAvailable {
		return nil, apperror.Conflict("rider is not available")
	}
	if req.RiderEmail != "" && !strings.EqualFold(req.RiderEmail, rider.Email) {
		return nil, apperror.Validation("rider email does not match rider")
	}

	assignment := models.RiderAssignment{
		RiderID:    rider.ID.Hex(),
		RiderName:  rider.Name,
		RiderEmail: rider.Email,
	}
	if req.RiderName != "" {
		assignment.RiderName = req.RiderName
	}

	now := time.Now().UTC()
	err = s.store.withTransaction(ctx, func(ctx context.Context) error {
		claimed, err := s.store.Riders.SetWorkStatus(ctx, assignment.RiderID, models.WorkAvailable, models.WorkInDelivery)
		if err != nil {
			return err
		}
		if !claimed {
			return apperror.Conflict("rider is not available")
		}

		assigned, err := s.store.Parcels.AssignRider(ctx, req.ParcelID, assignment, now)
		if err == nil && !assigned {
			err = apperror.Conflict("parcel is no longer waiting for a rider")
		}
		if err != nil {
			if _, releaseErr := s.store.Riders.SetWorkStatus(ctx, assignment.RiderID, models.WorkInDelivery, models.WorkAvailable); releaseErr != nil {
				logger.Error("failed to release rider", releaseErr, "riderId", assignment.RiderID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		logger.Warning("rider assignment failed", "parcelId", req.ParcelID, "riderId", req.RiderID, "error", err.Error())
		return nil, err
	}

	s.tracker.Append(parcel.TrackingID, models.StatusDriverAssigned)
	logger.Info("rider assigned", "parcelId", req.ParcelID, "riderId", assignment.RiderID, "trackingId", parcel.TrackingID)

	parcel.DeliveryStatus = models.StatusDriverAssigned
	parcel.RiderID = assignment.RiderID
	parcel.RiderName = assignment.RiderName
	parcel.RiderEmail = assignment.RiderEmail
	parcel.UpdatedAt = now
	return parcel, nil
}

// UpdateStatus moves an assigned parcel forward. A rider actor may only move
// parcels assigned to them. Delivering the parcel frees the rider.
func (s *ParcelService) UpdateStatus(ctx context.Context, req StatusUpdate, actor *models.User) (*models.Parcel, error) {
	to, err := statemachine.ParseStatus(req.DeliveryStatus)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, err.Error())
	}

	parcel, err := s.store.Parcels.FindByID(ctx, req.ParcelID)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.Role == models.RoleRider && !strings.EqualFold(actor.Email, parcel.RiderEmail) {
		return nil, apperror.Forbidden("parcel is assigned to another rider")
	}
	if req.RiderID != "" && req.RiderID != parcel.RiderID {
		return nil, apperror.Validation("rider id does not match parcel")
	}
	if req.TrackingID != "" && req.TrackingID != parcel.TrackingID {
		return nil, apperror.Validation("tracking id does not match parcel")
	}

	from := parcel.DeliveryStatus
	if err := statemachine.CanTransition(from, to, statemachine.TriggerUpdate); err != nil {
		return nil, apperror.Wrap(apperror.KindConflict, err, err.Error())
	}

	now := time.Now().UTC()
	err = s.store.withTransaction(ctx, func(ctx context.Context) error {
		updated, err := s.store.Parcels.SetDeliveryStatus(ctx, req.ParcelID, from, to, now)
		if err != nil {
			return err
		}
		if !updated {
			return apperror.Conflict("parcel status changed, reload and retry")
		}
		if !to.IsTerminal() || parcel.RiderID == "" {
			return nil
		}
		released, err := s.store.Riders.SetWorkStatus(ctx, parcel.RiderID, models.WorkInDelivery, models.WorkAvailable)
		if err != nil {
			return err
		}
		if !released {
			logger.Warning("rider was not in delivery when parcel was delivered", "riderId", parcel.RiderID, "parcelId", req.ParcelID)
		}
		return nil
	})
	if err != nil {
		logger.Warning("delivery status update failed", "parcelId", req.ParcelID, "status", to, "error", err.Error())
		return nil, err
	}

	s.tracker.Append(parcel.TrackingID, to)
	logger.Info("delivery status updated", "parcelId", req.ParcelID, "from", from, "to", to)

	parcel.DeliveryStatus = to
	parcel.UpdatedAt = now
	return parcel, nil
}

// Delete removes a parcel on behalf of its sender or an admin. A rider still
// carrying the parcel is made available again. Payments and tracking logs are
// kept.
func (s *ParcelService) Delete(ctx context.Context, id, callerEmail string, isAdmin bool) error {
	parcel, err := s.store.Parcels.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin && !strings.EqualFold(callerEmail, parcel.SenderEmail) {
		return apperror.Forbidden("only the sender can delete this parcel")
	}

	err = s.store.withTransaction(ctx, func(ctx context.Context) error {
		if parcel.HasActiveRider() {
			released, err := s.store.Riders.SetWorkStatus(ctx, parcel.RiderID, models.WorkInDelivery, models.WorkAvailable)
			if err != nil && !apperror.Is(err, apperror.KindNotFound) {
				return err
			}
			if !released {
				logger.Warning("assigned rider was not in delivery", "riderId", parcel.RiderID, "parcelId", id)
			}
		}
		return s.store.Parcels.Delete(ctx, id)
	})
	if err != nil {
		logger.Error("failed to delete parcel", err, "parcelId", id)
		return err
	}
	logger.Info("parcel deleted", "parcelId", id, "by", callerEmail)
	return nil
}
