package statemachine

import (
	"fmt"
	"strings"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

// Trigger names the operation that moves a parcel between statuses.
type Trigger string

const (
	TriggerPayment    Trigger = "payment"
	TriggerAssignment Trigger = "assignment"
	TriggerUpdate     Trigger = "status_update"
)

// Transition defines a valid state change and the operation allowed to make it
type Transition struct {
	From    models.DeliveryStatus
	To      models.DeliveryStatus
	Trigger Trigger
}

// validTransitions is the authoritative state machine definition. Payment and
// assignment are single fixed steps; once a rider holds the parcel any later
// stage can be reported, so riders may skip intermediate scans.
var validTransitions = func() []Transition {
	ts := []Transition{
		{From: models.StatusCreated, To: models.StatusPendingPickup, Trigger: TriggerPayment},
		{From: models.StatusPendingPickup, To: models.StatusDriverAssigned, Trigger: TriggerAssignment},
	}
	ordered := models.DeliveryStatuses
	for i, from := range ordered {
		if i < indexOf(models.StatusDriverAssigned) {
			continue
		}
		for _, to := range ordered[i+1:] {
			ts = append(ts, Transition{From: from, To: to, Trigger: TriggerUpdate})
		}
	}
	return ts
}()

func indexOf(s models.DeliveryStatus) int {
	for i, known := range models.DeliveryStatuses {
		if known == s {
			return i
		}
	}
	return -1
}

type transitionKey struct {
	From    models.DeliveryStatus
	To      models.DeliveryStatus
	Trigger Trigger
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Trigger}] = true
	}
	return m
}()

// ParseStatus converts raw input into a known delivery status.
func ParseStatus(raw string) (models.DeliveryStatus, error) {
	s := models.DeliveryStatus(strings.TrimSpace(raw))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown delivery status %q", raw)
	}
	return s, nil
}

// ValidTransitionsFrom returns the statuses reachable from status by trigger.
func ValidTransitionsFrom(status models.DeliveryStatus, trigger Trigger) []models.DeliveryStatus {
	var nexts []models.DeliveryStatus
	for _, t := range validTransitions {
		if t.From == status && t.Trigger == trigger {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks whether trigger may move a parcel from one status to another.
func CanTransition(from, to models.DeliveryStatus, trigger Trigger) error {
	if transitionMap[transitionKey{From: from, To: to, Trigger: trigger}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s -> %s is not allowed for %s; valid next states: %s",
		label(from), label(to), trigger, describeValidFrom(from, trigger))
}

func describeValidFrom(status models.DeliveryStatus, trigger Trigger) string {
	nexts := ValidTransitionsFrom(status, trigger)
	if len(nexts) == 0 {
		return "none"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func label(s models.DeliveryStatus) string {
	if s == models.StatusCreated {
		return "created"
	}
	return string(s)
}
