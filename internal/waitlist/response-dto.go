package waitlist

import "carequeue/internal/domain"

// EntryStatusResponse is what a family sees about their place.
type EntryStatusResponse struct {
	Entry             *domain.WaitlistEntry `json:"entry"`
	Position          int                   `json:"position"`
	PositionBand      string                `json:"position_band,omitempty"`
	CohortSize        int                   `json:"cohort_size"`
	EstimatedWaitDays *int                  `json:"estimated_wait_days,omitempty"`
	OutstandingOffer  *domain.WaitlistOffer `json:"outstanding_offer,omitempty"`
}
