// Package ranking orders a cohort's active entries and projects wait times.
package ranking

import (
	"math"
	"sort"

	"carequeue/internal/domain"

	"github.com/google/uuid"
)

// DefaultSignificantChange is the smallest move, in places, reported to families.
const DefaultSignificantChange = 3

// daysPerMonth converts monthly throughput into days.
const daysPerMonth = 30.4

// PositionChange describes one entry's move in a recalculation.
type PositionChange struct {
	EntryID        uuid.UUID `json:"entry_id"`
	OldPosition    int       `json:"old_position"`
	NewPosition    int       `json:"new_position"`
	PositionChange int       `json:"position_change"`
	Significant    bool      `json:"significant"`
}

// SortEntries returns a copy ordered by score desc, joinedAt asc, then ID.
func SortEntries(entries []*domain.WaitlistEntry) []*domain.WaitlistEntry {
	sorted := make([]*domain.WaitlistEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})
	return sorted
}

// Less is the ranking order: higher score first, earlier join first, ID as the final guard.
func Less(a, b *domain.WaitlistEntry) bool {
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore > b.PriorityScore
	}
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.Before(b.JoinedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Rank assigns 1-based positions in SortEntries order. The entries are not modified.
// Entries without a prior position (0) are never significant.
func Rank(entries []*domain.WaitlistEntry, threshold int) []PositionChange {
	if threshold <= 0 {
		threshold = DefaultSignificantChange
	}
	sorted := SortEntries(entries)
	changes := make([]PositionChange, 0, len(sorted))
	for i, entry := range sorted {
		newPosition := i + 1
		change := PositionChange{
			EntryID:     entry.ID,
			OldPosition: entry.Position,
			NewPosition: newPosition,
		}
		if entry.Position > 0 {
			change.PositionChange = entry.Position - newPosition
			change.Significant = abs(change.PositionChange) >= threshold
		}
		changes = append(changes, change)
	}
	return changes
}

// PositionBand is the coarse label shown to families.
func PositionBand(position int) string {
	switch {
	case position >= 1 && position <= 5:
		return "Top 5"
	case position >= 6 && position <= 10:
		return "6-10"
	case position >= 11 && position <= 20:
		return "11-20"
	case position >= 21 && position <= 50:
		return "21-50"
	default:
		return "50+"
	}
}

// Throughput is how fast a cohort moves.
type Throughput struct {
	AverageOffersPerMonth float64 `json:"average_offers_per_month"`
	AverageAcceptanceRate float64 `json:"average_acceptance_rate"`
	SeasonalAdjustment    float64 `json:"seasonal_adjustment"`
}

// EffectiveRate is the expected number of placements per month.
func (t Throughput) EffectiveRate() float64 {
	return t.AverageOffersPerMonth * t.AverageAcceptanceRate * t.SeasonalAdjustment
}

// EstimateWaitDays projects the wait at position. known is false when the
// cohort's throughput gives no usable rate.
func EstimateWaitDays(position int, t Throughput) (days int, known bool) {
	rate := t.EffectiveRate()
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, false
	}
	months := math.Max(0, float64(position-1)/rate)
	return int(math.Round(months * daysPerMonth)), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
