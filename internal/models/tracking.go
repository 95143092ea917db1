package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackingLog is an append-only record of one lifecycle transition.
type TrackingLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrackingID string             `bson:"trackingId" json:"trackingId"`
	Status     DeliveryStatus     `bson:"status" json:"status"`
	Details    string             `bson:"details" json:"details"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
