package ranking

import (
	"time"

	"carequeue/internal/domain"

	"github.com/samber/lo"
)

// ThroughputDefaults fill in when a cohort has no usable offer history.
type ThroughputDefaults struct {
	OffersPerMonth     float64
	AcceptanceRate     float64
	SeasonalAdjustment map[time.Month]float64
}

// ThroughputFromHistory derives throughput from offers created within lookback of now.
func ThroughputFromHistory(offers []*domain.WaitlistOffer, lookback time.Duration, now time.Time, defaults ThroughputDefaults) Throughput {
	t := Throughput{
		AverageOffersPerMonth: defaults.OffersPerMonth,
		AverageAcceptanceRate: defaults.AcceptanceRate,
		SeasonalAdjustment:    1,
	}
	if adj, ok := defaults.SeasonalAdjustment[now.Month()]; ok {
		t.SeasonalAdjustment = adj
	}

	since := now.Add(-lookback)
	recent := lo.Filter(offers, func(o *domain.WaitlistOffer, _ int) bool {
		return !o.CreatedAt.Before(since)
	})
	if len(recent) == 0 || lookback <= 0 {
		return t
	}

	months := lookback.Hours() / 24 / daysPerMonth
	t.AverageOffersPerMonth = float64(len(recent)) / months

	settled := lo.CountBy(recent, func(o *domain.WaitlistOffer) bool {
		return o.Response != domain.OfferResponsePending
	})
	if settled > 0 {
		accepted := lo.CountBy(recent, func(o *domain.WaitlistOffer) bool {
			return o.Response == domain.OfferResponseAccepted
		})
		t.AverageAcceptanceRate = float64(accepted) / float64(settled)
	}
	return t
}
