package lifecycle

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNoDeliveryPartner = errors.New("no delivery staff available")

// Candidate is a delivery staff member considered for a dispatch.
type Candidate struct {
	UserID       uuid.UUID
	Name         string
	ActiveOrders int64
	// LastDispatchedAt is zero when the partner has never been dispatched.
	LastDispatchedAt time.Time
}

// PickDeliveryPartner picks the least loaded partner. Ties go to whoever
// has waited longest since their last dispatch, then by name.
func PickDeliveryPartner(candidates []Candidate) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, ErrNoDeliveryPartner
	}
	best := slices.MinFunc(candidates, func(a, b Candidate) int {
		if a.ActiveOrders != b.ActiveOrders {
			if a.ActiveOrders < b.ActiveOrders {
				return -1
			}
			return 1
		}
		if c := a.LastDispatchedAt.Compare(b.LastDispatchedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return best, nil
}
