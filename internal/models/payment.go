package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment is written once per successful checkout transaction.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Amount        float64            `bson:"amount" json:"amount"`
	Currency      string             `bson:"currency" json:"currency"`
	CustomerEmail string             `bson:"customerEmail" json:"customerEmail"`
	ParcelID      string             `bson:"parcelId" json:"parcelId"`
	ParcelName    string             `bson:"parcelName,omitempty" json:"parcelName,omitempty"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	PaymentStatus string             `bson:"paymentStatus" json:"paymentStatus"`
	TrackingID    string             `bson:"trackingId" json:"trackingId"`
	PaidAt        time.Time          `bson:"paidAt" json:"paidAt"`
}
