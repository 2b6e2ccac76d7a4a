package store

import (
	"fmt"

	"tokensafe/internal/ledger"
	"tokensafe/internal/subscription/models"
	id "tokensafe/pkg/domain"
)

const (
	configRecordType       = "SubscriptionConfig"
	subscriptionRecordType = "Subscription"
)

const (
	// discriminator + admin + treasury + 3 prices + duration +
	// total_subscribers + total_revenue + nonce
	configRecordSize = ledger.DiscriminatorSize + 2*id.AccountIDSize + 3*8 + 8 + 8 + 8 + 1

	// discriminator + user + tier + expires_at + created_at + total_paid + nonce
	subscriptionRecordSize = ledger.DiscriminatorSize + id.AccountIDSize + 1 + 8 + 8 + 8 + 1
)

func encodeConfig(cfg *models.SubscriptionConfig) []byte {
	e := ledger.NewEncoder(configRecordType, configRecordSize)
	e.PutBytes(cfg.Admin[:])
	e.PutBytes(cfg.Treasury[:])
	e.PutUint64(cfg.Pricing.Basic)
	e.PutUint64(cfg.Pricing.Pro)
	e.PutUint64(cfg.Pricing.Alpha)
	e.PutInt64(cfg.Duration)
	e.PutUint64(cfg.TotalSubscribers)
	e.PutUint64(cfg.TotalRevenue)
	e.PutUint8(cfg.Nonce)
	return e.Bytes()
}

func decodeConfig(data []byte) (*models.SubscriptionConfig, error) {
	d, err := ledger.NewDecoder(configRecordType, data)
	if err != nil {
		return nil, err
	}
	var cfg models.SubscriptionConfig
	copy(cfg.Admin[:], d.Bytes(id.AccountIDSize))
	copy(cfg.Treasury[:], d.Bytes(id.AccountIDSize))
	cfg.Pricing.Basic = d.Uint64()
	cfg.Pricing.Pro = d.Uint64()
	cfg.Pricing.Alpha = d.Uint64()
	cfg.Duration = d.Int64()
	cfg.TotalSubscribers = d.Uint64()
	cfg.TotalRevenue = d.Uint64()
	cfg.Nonce = d.Uint8()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode subscription config: %w", err)
	}
	return &cfg, nil
}

func encodeSubscription(sub *models.Subscription) []byte {
	e := ledger.NewEncoder(subscriptionRecordType, subscriptionRecordSize)
	e.PutBytes(sub.User[:])
	e.PutUint8(uint8(sub.Tier))
	e.PutInt64(sub.ExpiresAt)
	e.PutInt64(sub.CreatedAt)
	e.PutUint64(sub.TotalPaid)
	e.PutUint8(sub.Nonce)
	return e.Bytes()
}

func decodeSubscription(data []byte) (*models.Subscription, error) {
	d, err := ledger.NewDecoder(subscriptionRecordType, data)
	if err != nil {
		return nil, err
	}
	var sub models.Subscription
	copy(sub.User[:], d.Bytes(id.AccountIDSize))
	sub.Tier = models.Tier(d.Uint8())
	sub.ExpiresAt = d.Int64()
	sub.CreatedAt = d.Int64()
	sub.TotalPaid = d.Uint64()
	sub.Nonce = d.Uint8()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}
