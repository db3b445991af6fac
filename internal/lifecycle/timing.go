package lifecycle

import (
	"slices"
	"time"

	"github.com/kitchenops/api/internal/enum"
)

const (
	highPriorityAge     = 30 * time.Minute
	mediumPriorityAge   = 15 * time.Minute
	mediumRemainingMark = 10 * time.Minute

	maxEstimateMinutes = 120
)

// Snapshot is the slice of an order the timing helpers need.
type Snapshot struct {
	Status           string
	CreatedAt        time.Time
	EstimatedMinutes int32
}

// DueAt is when the order is expected to be ready.
func (s Snapshot) DueAt() time.Time {
	return s.CreatedAt.Add(time.Duration(s.EstimatedMinutes) * time.Minute)
}

// TimeRemaining returns how long until the order is due, clamped at zero,
// and whether it is already overdue. Terminal orders report (0, false).
func TimeRemaining(s Snapshot, now time.Time) (time.Duration, bool) {
	if enum.IsTerminal(s.Status) {
		return 0, false
	}
	left := s.DueAt().Sub(now)
	if left <= 0 {
		return 0, true
	}
	return left, false
}

// Priority ranks a live order by how urgently the kitchen should act on it.
func Priority(s Snapshot, now time.Time) string {
	if enum.IsTerminal(s.Status) {
		return enum.PriorityLow
	}
	age := now.Sub(s.CreatedAt)
	left, overdue := TimeRemaining(s, now)
	switch {
	case overdue || age >= highPriorityAge:
		return enum.PriorityHigh
	case left <= mediumRemainingMark || age >= mediumPriorityAge:
		return enum.PriorityMedium
	default:
		return enum.PriorityLow
	}
}

func priorityRank(p string) int {
	switch p {
	case enum.PriorityHigh:
		return 2
	case enum.PriorityMedium:
		return 1
	}
	return 0
}

// SortQueue orders items for the kitchen board: highest priority first,
// then oldest first. The sort is stable.
func SortQueue[T any](items []T, snapshot func(T) Snapshot, now time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		sa, sb := snapshot(a), snapshot(b)
		ra, rb := priorityRank(Priority(sa, now)), priorityRank(Priority(sb, now))
		if ra != rb {
			return rb - ra
		}
		return sa.CreatedAt.Compare(sb.CreatedAt)
	})
}

// PrepLine is one order line as seen by the estimator.
type PrepLine struct {
	PrepMinutes int32
	Quantity    int32
}

// EstimateMinutes estimates preparation time for an order: the slowest dish
// plus one minute per extra portion, bounded to [0, two hours].
func EstimateMinutes(lines []PrepLine) int32 {
	var longest, portions int64
	for _, l := range lines {
		if int64(l.PrepMinutes) > longest {
			longest = int64(l.PrepMinutes)
		}
		if l.Quantity > 0 {
			portions += int64(l.Quantity)
		}
	}
	if portions == 0 {
		return 0
	}
	est := longest + (portions - 1)
	return int32(min(max(est, 0), maxEstimateMinutes))
}
