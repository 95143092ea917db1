package models

import "strings"

// DeliveryStatus is the stage of a parcel's physical fulfilment. The empty
// value marks a parcel that has not been paid for yet.
type DeliveryStatus string

const (
	StatusCreated              DeliveryStatus = ""
	StatusPendingPickup        DeliveryStatus = "pending-pickup"
	StatusDriverAssigned       DeliveryStatus = "driver_assigned"
	StatusRiderArriving        DeliveryStatus = "rider_arriving"
	StatusParcelPickedUp       DeliveryStatus = "parcel_picked_up"
	StatusInTransit            DeliveryStatus = "in-transit"
	StatusReachedServiceCenter DeliveryStatus = "reached_service_center"
	StatusParcelDelivered      DeliveryStatus = "parcel_delivered"
)

// DeliveryStatuses lists every named status in lifecycle order.
var DeliveryStatuses = []DeliveryStatus{
	StatusPendingPickup,
	StatusDriverAssigned,
	StatusRiderArriving,
	StatusParcelPickedUp,
	StatusInTransit,
	StatusReachedServiceCenter,
	StatusParcelDelivered,
}

func (s DeliveryStatus) IsValid() bool {
	for _, known := range DeliveryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s DeliveryStatus) IsTerminal() bool {
	return s == StatusParcelDelivered
}

func (s DeliveryStatus) String() string {
	return string(s)
}

// Details is the human readable form of the status code.
func (s DeliveryStatus) Details() string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(string(s))
}
