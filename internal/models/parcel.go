package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Parcel is a shippable item tracked from submission to delivery.
// TrackingID is set exactly when PaymentStatus is paid.
type Parcel struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ParcelType       string             `bson:"parcelType,omitempty" json:"parcelType,omitempty"`
	ParcelName       string             `bson:"parcelName" json:"parcelName"`
	ParcelWeight     float64            `bson:"parcelWeight,omitempty" json:"parcelWeight,omitempty"`
	SenderName       string             `bson:"senderName,omitempty" json:"senderName,omitempty"`
	SenderEmail      string             `bson:"senderEmail" json:"senderEmail"`
	SenderDistrict   string             `bson:"senderDistrict,omitempty" json:"senderDistrict,omitempty"`
	SenderAddress    string             `bson:"senderAddress,omitempty" json:"senderAddress,omitempty"`
	ReceiverName     string             `bson:"receiverName" json:"receiverName"`
	ReceiverPhone    string             `bson:"receiverPhone,omitempty" json:"receiverPhone,omitempty"`
	ReceiverDistrict string             `bson:"receiverDistrict,omitempty" json:"receiverDistrict,omitempty"`
	ReceiverAddress  string             `bson:"receiverAddress" json:"receiverAddress"`
	Cost             float64            `bson:"cost" json:"cost"`
	PaymentStatus    PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	DeliveryStatus   DeliveryStatus     `bson:"deliveryStatus,omitempty" json:"deliveryStatus,omitempty"`
	RiderID          string             `bson:"riderId,omitempty" json:"riderId,omitempty"`
	RiderName        string             `bson:"riderName,omitempty" json:"riderName,omitempty"`
	RiderEmail       string             `bson:"riderEmail,omitempty" json:"riderEmail,omitempty"`
	TrackingID       string             `bson:"trackingId,omitempty" json:"trackingId,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// HasActiveRider reports whether a rider is currently carrying the parcel.
func (p *Parcel) HasActiveRider() bool {
	return p.RiderID != "" && p.DeliveryStatus != "" && !p.DeliveryStatus.IsTerminal()
}

// RiderAssignment is the set of rider fields written onto a parcel.
type RiderAssignment struct {
	RiderID    string
	RiderName  string
	RiderEmail string
}
