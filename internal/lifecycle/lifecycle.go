// Package lifecycle holds the order status model: which transitions exist,
// who may perform them, and the derived fields dashboards show for an order
// (priority, time remaining, queue order, delivery partner choice).
//
// Everything here is pure; callers load records and persist results.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/kitchenops/api/internal/enum"
)

var (
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrTransitionNotAllowed = errors.New("role may not perform this transition")
	ErrNotAssignee          = errors.New("order is assigned to another staff member")
)

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// Terminal statuses have no entry.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:        {enum.OrderStatusCooking, enum.OrderStatusCancelled},
	enum.OrderStatusCooking:        {enum.OrderStatusOutForDelivery, enum.OrderStatusCancelled},
	enum.OrderStatusOutForDelivery: {enum.OrderStatusDelivered},
}

// roleTransitions lists, per non-admin role, the target statuses it may move
// an order into. Admin is unrestricted.
var roleTransitions = map[string][]string{
	enum.RoleKitchenStaff:  {enum.OrderStatusCooking, enum.OrderStatusOutForDelivery, enum.OrderStatusCancelled},
	enum.RoleDeliveryStaff: {enum.OrderStatusDelivered},
}

// CanTransition checks if the transition from current to next is allowed.
func CanTransition(current, next string) error {
	if !enum.IsOrderStatus(current) || !enum.IsOrderStatus(next) {
		return ErrInvalidStatus
	}
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("%w: cannot transition from %s", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
}

// CanActorTransition checks both the edge and whether role may take it.
// isAssignee tells whether the actor is the delivery partner on the order;
// delivery staff can only complete their own deliveries.
func CanActorTransition(role, current, next string, isAssignee bool) error {
	if err := CanTransition(current, next); err != nil {
		return err
	}
	if role == enum.RoleAdmin {
		return nil
	}
	targets, ok := roleTransitions[role]
	if !ok {
		return ErrTransitionNotAllowed
	}
	permitted := false
	for _, s := range targets {
		if s == next {
			permitted = true
			break
		}
	}
	if !permitted {
		return ErrTransitionNotAllowed
	}
	if role == enum.RoleDeliveryStaff && !isAssignee {
		return ErrNotAssignee
	}
	return nil
}

// NextStatuses returns the statuses reachable from current in one step.
func NextStatuses(current string) []string {
	next := allowedTransitions[current]
	out := make([]string, len(next))
	copy(out, next)
	return out
}
