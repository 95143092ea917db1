package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

type RiderService struct {
	store Store
}

func NewRiderService(store Store) *RiderService {
	return &RiderService{store: store}
}

// Apply stores a pending rider application. The applicant email defaults to
// the caller.
func (s *RiderService) Apply(ctx context.Context, rider *models.Rider, callerEmail string) error {
	rider.Email = strings.TrimSpace(rider.Email)
	if rider.Email == "" {
		rider.Email = callerEmail
	}
	switch {
	case strings.TrimSpace(rider.Name) == "":
		return apperror.Validation("name is required")
	case rider.Email == "":
		return apperror.Validation("email is required")
	case strings.TrimSpace(rider.District) == "":
		return apperror.Validation("district is required")
	}

	rider.Status = models.RiderPending
	rider.WorkStatus = ""
	rider.ReviewedAt = nil
	rider.CreatedAt = time.Now().UTC()

	if err := s.store.Riders.Insert(ctx, rider); err != nil {
		logger.Error("failed to store rider application", err, "email", rider.Email)
		return err
	}
	logger.Info("rider application received", "riderId", rider.ID.Hex(), "email", rider.Email)
	return nil
}

func (s *RiderService) List(ctx context.Context, filter RiderFilter) ([]models.Rider, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid rider status %q", filter.Status))
	}
	if filter.WorkStatus != "" && !filter.WorkStatus.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid work status %q", filter.WorkStatus))
	}
	return s.store.Riders.List(ctx, filter)
}

// Review applies an admin decision to a rider application. Approval makes the
// rider available for work and promotes the matching user to the rider role;
// other decisions leave the user's role alone and are refused while the rider
// is delivering a parcel.
func (s *RiderService) Review(ctx context.Context, riderID, decision, email string) (*models.Rider, error) {
	status := models.RiderStatus(strings.TrimSpace(decision))
	if !status.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid rider status %q", decision))
	}

	rider, err := s.store.Riders.FindByID(ctx, riderID)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		email = rider.Email
	}

	var user *models.User
	if status == models.RiderApproved {
		user, err = s.store.Users.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	}

	// The in-delivery check is part of the write so a concurrent assignment
	// cannot be overwritten.
	now := time.Now().UTC()
	err = s.store.withTransaction(ctx, func(ctx context.Context) error {
		reviewed, err := s.store.Riders.Review(ctx, riderID, status, now)
		if err != nil {
			return err
		}
		if !reviewed {
			return apperror.Conflict("rider is currently delivering a parcel")
		}
		if user == nil || user.Role == models.RoleAdmin || user.Role == models.RoleRider {
			return nil
		}
		return s.store.Users.SetRoleByEmail(ctx, email, models.RoleRider)
	})
	if err != nil {
		if apperror.Is(err, apperror.KindConflict) {
			logger.Warning("rider review refused", "riderId", riderID, "status", status, "error", err.Error())
		} else {
			logger.Error("failed to review rider", err, "riderId", riderID, "status", status)
		}
		return nil, err
	}
	logger.Info("rider reviewed", "riderId", riderID, "status", status, "email", email)

	return s.store.Riders.FindByID(ctx, riderID)
}

// Delete removes a rider that is not carrying a parcel.
func (s *RiderService) Delete(ctx context.Context, riderID string) error {
	rider, err := s.store.Riders.FindByID(ctx, riderID)
	if err != nil {
		return err
	}
	if rider.WorkStatus == models.WorkInDelivery {
		return apperror.Conflict("rider is currently delivering a parcel")
	}
	if err := s.store.Riders.Delete(ctx, riderID); err != nil {
		return err
	}
	logger.Info("rider deleted", "riderId", riderID)
	return nil
}
