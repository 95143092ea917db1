package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/statemachine"
)

type PaymentConfig struct {
	SiteDomain  string
	Currency    string
	TrackingIDs TrackingIDGenerator
}

// PaymentService runs hosted checkout for parcels and turns completed
// checkouts into payment records and tracking ids.
type PaymentService struct {
	store   Store
	gateway CheckoutGateway
	tracker Tracker
	cfg     PaymentConfig
}

func NewPaymentService(store Store, gateway CheckoutGateway, tracker Tracker, cfg PaymentConfig) *PaymentService {
	cfg.SiteDomain = strings.TrimRight(cfg.SiteDomain, "/")
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &PaymentService{store: store, gateway: gateway, tracker: tracker, cfg: cfg}
}

// Confirmation is the outcome of confirming a checkout session.
type Confirmation struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	AlreadyProcessed bool            `json:"alreadyProcessed"`
	TransactionID    string          `json:"transactionId,omitempty"`
	TrackingID       string          `json:"trackingId,omitempty"`
	CustomerEmail    string          `json:"customerEmail,omitempty"`
	ParcelID         string          `json:"parcelId,omitempty"`
	Payment          *models.Payment `json:"payment,omitempty"`
}

var errAlreadyConfirmed = errors.New("payment already confirmed")

// CreateCheckoutSession starts a hosted checkout for an unpaid parcel and
// returns the URL the customer should be sent to.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, parcelID string) (string, error) {
	parcel, err := s.store.Parcels.FindByID(ctx, parcelID)
	if err != nil {
		return "", err
	}
	if parcel.PaymentStatus == models.PaymentPaid {
		return "", apperror.Conflict("parcel is already paid")
	}
	if err := statemachine.CanTransition(parcel.DeliveryStatus, models.StatusPendingPickup, statemachine.TriggerPayment); err != nil {
		return "", apperror.Wrap(apperror.KindConflict, err, err.Error())
	}
	if parcel.Cost <= 0 {
		return "", apperror.Validation("parcel has no cost")
	}

	sess, err := s.gateway.CreateSession(ctx, CheckoutRequest{
		ProductName:   "Parcel Payment for " + parcel.ParcelName,
		Amount:        int64(math.Round(parcel.Cost * 100)),
		Currency:      s.cfg.Currency,
		CustomerEmail: parcel.SenderEmail,
		SuccessURL:    s.cfg.SiteDomain + "/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cfg.SiteDomain + "/dashboard/payment-cancelled",
		Metadata: map[string]string{
			"parcelId":   parcelID,
			"parcelName": parcel.ParcelName,
			"senderName": parcel.SenderName,
		},
	})
	if err != nil {
		logger.Error("failed to create checkout session", err, "parcelId", parcelID)
		return "", err
	}
	logger.Info("checkout session created", "parcelId", parcelID, "sessionId", sess.ID)
	return sess.URL, nil
}

// ConfirmPayment settles a checkout session. Confirming the same session
// again, or racing another confirmation for it, never creates a second
// payment and always reports the original tracking id.
func (s *PaymentService) ConfirmPayment(ctx context.Context, sessionID string) (*Confirmation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.Validation("session_id is required")
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		logger.Error("failed to retrieve checkout session", err, "sessionId", sessionID)
		return nil, err
	}

	if sess.TransactionID != "" {
		existing, err := s.store.Payments.FindByTransactionID(ctx, sess.TransactionID)
		if err == nil {
			s.tracker.Append(existing.TrackingID, models.StatusPendingPickup)
			return alreadyProcessed(existing), nil
		}
		if !apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
	}

	if !sess.IsPaid() {
		logger.Info("checkout session not paid", "sessionId", sessionID, "status", sess.PaymentStatus)
		return &Confirmation{Success: true, Message: "payment not completed"}, nil
	}
	if sess.TransactionID == "" {
		return nil, apperror.New(apperror.KindUpstream, "checkout session has no payment transaction")
	}
	parcelID := sess.Metadata["parcelId"]
	if parcelID == "" {
		return nil, apperror.Validation("checkout session is not linked to a parcel")
	}

	generated, err := s.cfg.TrackingIDs.Generate()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to generate tracking id")
	}

	paidAt := time.Now().UTC()
	var payment *models.Payment
	err = s.store.withTransaction(ctx, func(ctx context.Context) error {
		trackingID := generated
		marked, err := s.store.Parcels.MarkPaid(ctx, parcelID, trackingID, paidAt)
		if err != nil {
			return err
		}
		parcelName := sess.Metadata["parcelName"]
		customerEmail := sess.CustomerEmail
		if !marked || parcelName == "" || customerEmail == "" {
			parcel, err := s.store.Parcels.FindByID(ctx, parcelID)
			if err != nil {
				return err
			}
			if !marked {
				if parcel.TrackingID == "" {
					return apperror.New(apperror.KindInternal, "paid parcel has no tracking id")
				}
				trackingID = parcel.TrackingID
			}
			if parcelName == "" {
				parcelName = parcel.ParcelName
			}
			if customerEmail == "" {
				customerEmail = parcel.SenderEmail
			}
		}

		currency := sess.Currency
		if currency == "" {
			currency = s.cfg.Currency
		}
		payment = &models.Payment{
			Amount:        float64(sess.AmountTotal) / 100,
			Currency:      currency,
			CustomerEmail: customerEmail,
			ParcelID:      parcelID,
			ParcelName:    parcelName,
			TransactionID: sess.TransactionID,
			PaymentStatus: sess.PaymentStatus,
			TrackingID:    trackingID,
			PaidAt:        paidAt,
		}
		if err := s.store.Payments.Insert(ctx, payment); err != nil {
			if errors.Is(err, apperror.ErrDuplicateKey) {
				return errAlreadyConfirmed
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errAlreadyConfirmed) {
		existing, findErr := s.store.Payments.FindByTransactionID(ctx, sess.TransactionID)
		if findErr != nil {
			return nil, findErr
		}
		logger.Info("payment confirmed concurrently", "transactionId", sess.TransactionID, "trackingId", existing.TrackingID)
		s.tracker.Append(existing.TrackingID, models.StatusPendingPickup)
		return alreadyProcessed(existing), nil
	}
	if err != nil {
		logger.Error("failed to confirm payment", err, "sessionId", sessionID, "parcelId", parcelID)
		return nil, err
	}

	s.tracker.Append(payment.TrackingID, models.StatusPendingPickup)
	logger.Success("payment confirmed", "parcelId", parcelID, "transactionId", payment.TransactionID, "trackingId", payment.TrackingID)

	return &Confirmation{
		Success:       true,
		Message:       "payment confirmed",
		TransactionID: payment.TransactionID,
		TrackingID:    payment.TrackingID,
		CustomerEmail: payment.CustomerEmail,
		ParcelID:      parcelID,
		Payment:       payment,
	}, nil
}

func alreadyProcessed(p *models.Payment) *Confirmation {
	return &Confirmation{
		Success:          true,
		Message:          "payment already processed",
		AlreadyProcessed: true,
		TransactionID:    p.TransactionID,
		TrackingID:       p.TrackingID,
		CustomerEmail:    p.CustomerEmail,
		ParcelID:         p.ParcelID,
		Payment:          p,
	}
}

func (s *PaymentService) History(ctx context.Context, filter PaymentFilter) ([]models.Payment, error) {
	return s.store.Payments.List(ctx, filter)
}

var dayParser = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats:  []string{"2006-01-02"},
}

// NewPaymentFilter builds a history filter for email. startDate and endDate
// are YYYY-MM-DD days and either may be empty; the end day is inclusive.
func NewPaymentFilter(email, startDate, endDate string) (PaymentFilter, error) {
	filter := PaymentFilter{CustomerEmail: strings.TrimSpace(email)}
	if startDate != "" {
		t, err := dayParser.Parse(startDate)
		if err != nil {
			return filter, apperror.Validation(fmt.Sprintf("invalid start_date %q", startDate))
		}
		filter.From = dayParser.With(t).BeginningOfDay()
	}
	if endDate != "" {
		t, err := dayParser.Parse(endDate)
		if err != nil {
			return filter, apperror.Validation(fmt.Sprintf("invalid end_date %q", endDate))
		}
		filter.To = dayParser.With(t).EndOfDay()
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return filter, apperror.Validation("end_date is before start_date")
	}
	return filter, nil
}
