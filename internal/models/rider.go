package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RiderStatus is the review state of a rider application.
type RiderStatus string

const (
	RiderPending  RiderStatus = "pending"
	RiderApproved RiderStatus = "approved"
	RiderRejected RiderStatus = "rejected"
)

func (s RiderStatus) IsValid() bool {
	switch s {
	case RiderPending, RiderApproved, RiderRejected:
		return true
	default:
		return false
	}
}

type WorkStatus string

const (
	WorkAvailable  WorkStatus = "available"
	WorkInDelivery WorkStatus = "in_delivery"
)

func (s WorkStatus) IsValid() bool {
	return s == WorkAvailable || s == WorkInDelivery
}

// Rider is a rider application and, once approved, the rider's working state.
type Rider struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	District   string             `bson:"district" json:"district"`
	Region     string             `bson:"region,omitempty" json:"region,omitempty"`
	NID        string             `bson:"nid,omitempty" json:"nid,omitempty"`
	BikeModel  string             `bson:"bikeModel,omitempty" json:"bikeModel,omitempty"`
	Status     RiderStatus        `bson:"status" json:"status"`
	WorkStatus WorkStatus         `bson:"workStatus,omitempty" json:"workStatus,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	ReviewedAt *time.Time         `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
}
