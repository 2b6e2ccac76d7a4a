// Package models defines the subscription component's record types: the
// process-wide SubscriptionConfig singleton and one Subscription per user.
package models

import (
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
)

// Tier is an ordered subscription level. Higher numeric value means broader
// entitlement.
type Tier uint8

const (
	TierBasic Tier = 1
	TierPro   Tier = 2
	TierAlpha Tier = 3
)

func (t Tier) IsValid() bool {
	return t >= TierBasic && t <= TierAlpha
}

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierPro:
		return "pro"
	case TierAlpha:
		return "alpha"
	default:
		return "unknown"
	}
}

// Pricing holds the per-tier prices in the smallest native currency unit.
type Pricing struct {
	Basic uint64
	Pro   uint64
	Alpha uint64
}

// ForTier returns the price of a tier. The tier must already be validated.
func (p Pricing) ForTier(tier Tier) (uint64, error) {
	switch tier {
	case TierBasic:
		return p.Basic, nil
	case TierPro:
		return p.Pro, nil
	case TierAlpha:
		return p.Alpha, nil
	default:
		return 0, dErrors.Newf(dErrors.CodeValidation, "tier %d is not basic (1), pro (2), or alpha (3)", tier)
	}
}

// SubscriptionConfig is the singleton holding pricing, the payment
// destination, and process-wide counters. Admin and Treasury are immutable
// after initialization; Duration is fixed at init and untouched by pricing
// updates.
type SubscriptionConfig struct {
	Admin            id.AccountID
	Treasury         id.AccountID
	Pricing          Pricing
	Duration         int64 // seconds added per paid period
	TotalSubscribers uint64
	TotalRevenue     uint64
	Nonce            uint8
}

// Subscription is one user's time-boxed entitlement. "Active" is never
// stored; it is derived from ExpiresAt against the current time.
type Subscription struct {
	User      id.AccountID
	Tier      Tier
	ExpiresAt int64
	CreatedAt int64
	TotalPaid uint64
	Nonce     uint8
}

// ActiveAt reports whether the subscription entitles at the given instant.
// The expiry instant itself is inactive (strict inequality).
func (s *Subscription) ActiveAt(now int64) bool {
	return s.ExpiresAt > now
}

// Status is the caller-facing view of a verification check.
type Status struct {
	Tier      Tier
	ExpiresAt int64
	Active    bool
}
