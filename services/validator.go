package services

import (
	"strings"
	"sync"

	"immograph/config"
	"immograph/models"
)

// Validator enforces required-field and numeric-range invariants.
// Checks run in a fixed order and the first failure wins; only that
// reason is reported. Per-reason counters accumulate over the run for
// the shutdown summary.
type Validator struct {
	rules *config.Rules

	mu     sync.Mutex
	counts map[models.RejectReason]int
}

// NewValidator creates a Validator with zeroed counters.
func NewValidator(rules *config.Rules) *Validator {
	return &Validator{
		rules:  rules,
		counts: make(map[models.RejectReason]int),
	}
}

// Validate classifies a listing as accepted or rejected with a reason.
func (v *Validator) Validate(l *models.Listing) models.StageResult {
	if reason, ok := v.firstFailure(l); ok {
		v.mu.Lock()
		v.counts[reason]++
		v.mu.Unlock()
		return models.Rejected(reason)
	}
	return models.Accepted()
}

func (v *Validator) firstFailure(l *models.Listing) (models.RejectReason, bool) {
	switch {
	case strings.TrimSpace(l.URL) == "":
		return models.ReasonMissingURL, true
	case strings.TrimSpace(l.Title) == "":
		return models.ReasonMissingTitle, true
	case strings.TrimSpace(l.Location) == "":
		return models.ReasonMissingLocation, true
	case l.PriceEUR == nil:
		return models.ReasonMissingPrice, true
	case l.SizeSqM == nil:
		return models.ReasonMissingSize, true
	case l.Rooms == nil:
		return models.ReasonMissingRooms, true
	case !v.rules.PriceBounds.Contains(*l.PriceEUR):
		return models.ReasonPriceOutOfBounds, true
	case !v.rules.SizeBounds.Contains(*l.SizeSqM):
		return models.ReasonSizeOutOfBounds, true
	case !v.rules.RoomBounds.Contains(*l.Rooms):
		return models.ReasonRoomsOutOfBounds, true
	}
	return "", false
}

// Counts returns a copy of the per-reason rejection counters.
func (v *Validator) Counts() map[models.RejectReason]int {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[models.RejectReason]int, len(v.counts))
	for reason, n := range v.counts {
		out[reason] = n
	}
	return out
}
