// Package service implements the subscription component: tier pricing,
// payment escrow to the configured treasury, expiry computation, renewal,
// and entitlement verification.
//
// Every mutating operation runs validate -> authorize -> checked arithmetic
// -> payment -> writes. All overflow checks complete before the payment
// transfer is invoked, so an operation that cannot commit its records never
// moves funds. One mutex serializes mutations, standing in for the hosting
// runtime's per-address writer exclusion (the config singleton is the one
// record touched by every subscriber).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tokensafe/internal/audit"
	"tokensafe/internal/ledger"
	"tokensafe/internal/payments"
	"tokensafe/internal/subscription/metrics"
	"tokensafe/internal/subscription/models"
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
	"tokensafe/pkg/platform/checked"
	"tokensafe/pkg/platform/sentinel"
)

// Store is the typed persistence surface the service depends on.
type Store interface {
	CreateConfig(ctx context.Context, cfg *models.SubscriptionConfig) error
	GetConfig(ctx context.Context) (*models.SubscriptionConfig, error)
	UpdateConfig(ctx context.Context, cfg *models.SubscriptionConfig) error
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, user id.AccountID) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
}

type Service struct {
	mu       sync.Mutex
	store    Store
	payments payments.Transferrer
	clock    ledger.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  *audit.Publisher
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func New(store Store, transferrer payments.Transferrer, clock ledger.Clock, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("subscription store is required")
	}
	if transferrer == nil {
		return nil, fmt.Errorf("payment transferrer is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}

	svc := &Service{
		store:    store,
		payments: transferrer,
		clock:    clock,
		logger:   slog.Default(),
		tracer:   otel.Tracer("tokensafe/subscription"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// InitializeConfig creates the singleton subscription config exactly once.
// Admin, treasury, and duration are immutable thereafter.
func (s *Service) InitializeConfig(ctx context.Context, admin, treasury id.AccountID, pricing models.Pricing, durationSeconds int64) (*models.SubscriptionConfig, error) {
	ctx, span := s.tracer.Start(ctx, "subscription.InitializeConfig")
	defer span.End()

	if admin.IsZero() || treasury.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "admin and treasury identities are required")
	}
	if durationSeconds <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "subscription duration must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := &models.SubscriptionConfig{
		Admin:    admin,
		Treasury: treasury,
		Pricing:  pricing,
		Duration: durationSeconds,
	}
	if err := s.store.CreateConfig(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "subscription config already initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create subscription config")
	}

	s.emit(ctx, audit.Event{Actor: admin.String(), Action: audit.ActionConfigInitialized})
	s.logger.InfoContext(ctx, "subscription config initialized",
		"admin", admin.String(),
		"treasury", treasury.String(),
		"duration_seconds", durationSeconds,
	)
	return cfg, nil
}

// Subscribe creates a user's subscription after collecting the tier price.
// Users with an existing subscription must renew instead. The supplied
// treasury must match the configured one so payments cannot be redirected.
func (s *Service) Subscribe(ctx context.Context, user id.AccountID, tier models.Tier, treasury id.AccountID) (*models.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "subscription.Subscribe")
	defer span.End()

	if !tier.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "tier %d is not basic (1), pro (2), or alpha (3)", tier)
	}
	if user.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "user identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if treasury != cfg.Treasury {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "supplied treasury does not match the configured treasury")
	}
	price, err := cfg.Pricing.ForTier(tier)
	if err != nil {
		return nil, err
	}

	// Refuse before payment if the user already holds a subscription.
	if _, err := s.store.GetSubscription(ctx, user); err == nil {
		return nil, dErrors.Newf(dErrors.CodeAlreadyExists, "user %s already has a subscription; use renew", user)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing subscription")
	}

	// All arithmetic must succeed before funds move: an operation that
	// cannot commit its records must not take payment.
	now := s.clock.Now(ctx)
	expiresAt, err := checked.AddI64(now, cfg.Duration)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeArithmeticOverflow, "subscription expiry would overflow")
	}
	nextSubscribers, err := checked.AddU64(cfg.TotalSubscribers, 1)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeArithmeticOverflow, "subscriber counter would overflow")
	}
	nextRevenue, err := checked.AddU64(cfg.TotalRevenue, price)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeArithmeticOverflow, "total revenue would overflow")
	}

	if err := s.payments.Transfer(ctx, user, cfg.Treasury, price); err != nil {
		if errors.Is(err, sentinel.ErrInsufficientFunds) {
			return nil, dErrors.Wrap(err, dErrors.CodePaymentFailure, "insufficient funds for subscription payment")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailure, "subscription payment failed")
	}

	sub := &models.Subscription{
		User:      user,
		Tier:      tier,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		TotalPaid: price,
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.Newf(dErrors.CodeAlreadyExists, "user %s already has a subscription; use renew", user)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create subscription")
	}

	cfg.TotalSubscribers = nextSubscribers
	cfg.TotalRevenue = nextRevenue
	if err := s.store.UpdateConfig(ctx, cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update subscription config stats")
	}

	s.metrics.ObserveSubscribed(tier.String(), price)
	s.emit(ctx, audit.Event{
		Actor:  user.String(),
		Action: audit.ActionSubscriptionCreated,
		Amount: price,
	})
	s.logger.InfoContext(ctx, "subscription created",
		"user", user.String(),
		"tier", tier.String(),
		"price", price,
		"expires_at", expiresAt,
	)
	return sub, nil
}

// Renew extends an existing subscription. Renewing before expiry extends
// from the current expiry; renewing after expiry restarts from now. The
// requested tier replaces the stored one in either direction, priced at the
// current config.
func (s *Service) Renew(ctx context.Context, user id.AccountID, tier models.Tier, treasury id.AccountID) (*models.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "subscription.Renew")
	defer span.End()

	if !tier.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "tier %d is not basic (1), pro (2), or alpha (3)", tier)
	}
	if user.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "user identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if treasury != cfg.Treasury {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "supplied treasury does not match the configured treasury")
	}
	price, err := cfg.Pricing.ForTier(tier)
	if err != nil {
		return nil, err
	}

	sub, err := s.store.GetSubscription(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "user %s has no subscription; use subscribe", user)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription")
	}
	if sub.User != user {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not the subscription owner")
	}

	// Early renewal extends remaining time; late renewal restarts from now.
	now := s.clock.Now(ctx)
	base := sub.ExpiresAt
	if now > base {
		base = now
	}
	expiresAt, err := checked.AddI64(base, cfg.Duration)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeArithmeticOverflow, "subscription expiry would overflow")
	}
	nextPaid, err := checked.AddU64(sub.TotalPaid, price)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeArithmeticOverflow, "subscription payment total would overflow")
	}
	nextRevenue, err := checked.AddU64(cfg.TotalRevenue, price)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeArithmeticOverflow, "total revenue would overflow")
	}

	if err := s.payments.Transfer(ctx, user, cfg.Treasury, price); err != nil {
		if errors.Is(err, sentinel.ErrInsufficientFunds) {
			return nil, dErrors.Wrap(err, dErrors.CodePaymentFailure, "insufficient funds for renewal payment")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailure, "renewal payment failed")
	}

	sub.Tier = tier
	sub.ExpiresAt = expiresAt
	sub.TotalPaid = nextPaid
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update subscription")
	}

	cfg.TotalRevenue = nextRevenue
	if err := s.store.UpdateConfig(ctx, cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update subscription config stats")
	}

	s.metrics.ObserveRenewed(tier.String(), price)
	s.emit(ctx, audit.Event{
		Actor:  user.String(),
		Action: audit.ActionSubscriptionRenewed,
		Amount: price,
	})
	s.logger.InfoContext(ctx, "subscription renewed",
		"user", user.String(),
		"tier", tier.String(),
		"price", price,
		"expires_at", expiresAt,
	)
	return sub, nil
}

// Verify is the read-only entitlement check: the subscription must be
// unexpired (strictly, the expiry instant itself is inactive) and at or
// above the required tier. It mutates nothing and is safe to call any
// number of times.
func (s *Service) Verify(ctx context.Context, user id.AccountID, requiredTier models.Tier) (*models.Status, error) {
	ctx, span := s.tracer.Start(ctx, "subscription.Verify")
	defer span.End()

	if !requiredTier.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "required tier %d is not basic (1), pro (2), or alpha (3)", requiredTier)
	}

	sub, err := s.store.GetSubscription(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "user %s has no subscription", user)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription")
	}

	now := s.clock.Now(ctx)
	status := &models.Status{
		Tier:      sub.Tier,
		ExpiresAt: sub.ExpiresAt,
		Active:    sub.ActiveAt(now),
	}
	verified := status.Active && sub.Tier >= requiredTier
	s.metrics.ObserveVerification(verified)
	if !verified {
		return status, dErrors.Newf(dErrors.CodeInsufficientSubscription,
			"subscription inactive or below tier %s (have %s, active=%t)", requiredTier, sub.Tier, status.Active)
	}
	return status, nil
}

// UpdatePricing replaces the three tier prices. Admin only. Duration,
// counters, and existing subscriptions are untouched; renewals always read
// prices at renewal time, so changes are never retroactive.
func (s *Service) UpdatePricing(ctx context.Context, caller id.AccountID, pricing models.Pricing) (*models.SubscriptionConfig, error) {
	ctx, span := s.tracer.Start(ctx, "subscription.UpdatePricing")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if caller != cfg.Admin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not the configured admin")
	}

	cfg.Pricing = pricing
	if err := s.store.UpdateConfig(ctx, cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update pricing")
	}

	s.metrics.IncrementPricingUpdates()
	s.emit(ctx, audit.Event{Actor: caller.String(), Action: audit.ActionPricingUpdated})
	s.logger.InfoContext(ctx, "pricing updated",
		"basic", pricing.Basic,
		"pro", pricing.Pro,
		"alpha", pricing.Alpha,
	)
	return cfg, nil
}

// GetConfig returns the singleton config.
func (s *Service) GetConfig(ctx context.Context) (*models.SubscriptionConfig, error) {
	return s.loadConfig(ctx)
}

// GetSubscription returns a user's subscription.
func (s *Service) GetSubscription(ctx context.Context, user id.AccountID) (*models.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "user %s has no subscription", user)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription")
	}
	return sub, nil
}

func (s *Service) loadConfig(ctx context.Context) (*models.SubscriptionConfig, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subscription config is not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription config")
	}
	return cfg, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err.Error())
	}
}
