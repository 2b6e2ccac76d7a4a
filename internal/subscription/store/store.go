// Package store persists SubscriptionConfig and Subscription records
// through the generic record store. The config lives at a well-known
// address derived from its namespace tag alone; subscriptions derive from
// the owning user.
package store

import (
	"context"
	"fmt"

	"tokensafe/internal/ledger"
	"tokensafe/internal/subscription/models"
	id "tokensafe/pkg/domain"
)

type RecordStore struct {
	records ledger.RecordStore
}

func New(records ledger.RecordStore) *RecordStore {
	return &RecordStore{records: records}
}

// ConfigAddress derives the singleton config address. No owner seed: there
// is exactly one config per deployment.
func ConfigAddress() (ledger.Address, uint8, error) {
	return ledger.Derive(ledger.NamespaceSubscriptionConfig)
}

// SubscriptionAddress derives the subscription address for a user.
func SubscriptionAddress(user id.AccountID) (ledger.Address, uint8, error) {
	return ledger.Derive(ledger.NamespaceSubscription, user[:])
}

// CreateConfig creates the singleton config record. Fails with
// sentinel.ErrAlreadyExists on reinitialization.
func (s *RecordStore) CreateConfig(ctx context.Context, cfg *models.SubscriptionConfig) error {
	addr, nonce, err := ConfigAddress()
	if err != nil {
		return err
	}
	cfg.Nonce = nonce
	return s.records.Create(ctx, addr, configRecordSize, encodeConfig(cfg))
}

// GetConfig loads and verifies the singleton config.
func (s *RecordStore) GetConfig(ctx context.Context) (*models.SubscriptionConfig, error) {
	addr, _, err := ConfigAddress()
	if err != nil {
		return nil, err
	}
	data, err := s.records.Read(ctx, addr)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		return nil, err
	}
	if got := ledger.DeriveWithNonce(ledger.NamespaceSubscriptionConfig, cfg.Nonce); got != addr {
		return nil, fmt.Errorf("subscription config at %s fails address verification", addr)
	}
	return cfg, nil
}

// UpdateConfig writes back a mutated config record.
func (s *RecordStore) UpdateConfig(ctx context.Context, cfg *models.SubscriptionConfig) error {
	addr := ledger.DeriveWithNonce(ledger.NamespaceSubscriptionConfig, cfg.Nonce)
	return s.records.Write(ctx, addr, encodeConfig(cfg))
}

// CreateSubscription creates a user's subscription record, assigning its
// derivation nonce. Fails with sentinel.ErrAlreadyExists if the user
// already has one.
func (s *RecordStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	addr, nonce, err := SubscriptionAddress(sub.User)
	if err != nil {
		return err
	}
	sub.Nonce = nonce
	return s.records.Create(ctx, addr, subscriptionRecordSize, encodeSubscription(sub))
}

// GetSubscription loads and verifies a user's subscription.
func (s *RecordStore) GetSubscription(ctx context.Context, user id.AccountID) (*models.Subscription, error) {
	addr, _, err := SubscriptionAddress(user)
	if err != nil {
		return nil, err
	}
	data, err := s.records.Read(ctx, addr)
	if err != nil {
		return nil, err
	}
	sub, err := decodeSubscription(data)
	if err != nil {
		return nil, err
	}
	if got := ledger.DeriveWithNonce(ledger.NamespaceSubscription, sub.Nonce, sub.User[:]); got != addr {
		return nil, fmt.Errorf("subscription at %s fails address verification", addr)
	}
	return sub, nil
}

// UpdateSubscription writes back a mutated subscription record.
func (s *RecordStore) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	addr := ledger.DeriveWithNonce(ledger.NamespaceSubscription, sub.Nonce, sub.User[:])
	return s.records.Write(ctx, addr, encodeSubscription(sub))
}
