// Package service implements the registry component: authority registries
// and the safety reports filed under them.
//
// Every operation is a single unit of work ordered validate -> authorize ->
// checked arithmetic -> writes, so a failure at any step leaves all records
// untouched. Mutating operations are serialized by one mutex, standing in
// for the hosting runtime's per-address writer exclusion.
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
	"tokensafe/internal/registry/metrics"
	"tokensafe/internal/registry/models"
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
	"tokensafe/pkg/platform/checked"
	"tokensafe/pkg/platform/sentinel"
)

// Store is the typed persistence surface the service depends on.
type Store interface {
	CreateRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error)
	GetRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error)
	UpdateRegistry(ctx context.Context, reg *models.Registry) error
	CreateReport(ctx context.Context, rep *models.SafetyReport) error
	GetReport(ctx context.Context, token, authority id.AccountID) (*models.SafetyReport, error)
	UpdateReport(ctx context.Context, rep *models.SafetyReport) error
}

type Service struct {
	mu      sync.Mutex
	store   Store
	clock   ledger.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *audit.Publisher
	tracer  trace.Tracer
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

func New(store Store, clock ledger.Clock, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("registry store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}

	svc := &Service{
		store:  store,
		clock:  clock,
		logger: slog.Default(),
		tracer: otel.Tracer("tokensafe/registry"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// InitializeRegistry creates the one registry record for an authority.
// Calling it twice for the same authority fails with CodeAlreadyExists.
func (s *Service) InitializeRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Initialize")
	defer span.End()

	if authority.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "authority identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.store.CreateRegistry(ctx, authority)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.Newf(dErrors.CodeAlreadyExists, "registry already initialized for authority %s", authority)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registry")
	}

	s.metrics.IncrementRegistriesInitialized()
	s.emit(ctx, audit.Event{Actor: authority.String(), Action: audit.ActionRegistryInitialized})
	s.logger.InfoContext(ctx, "registry initialized", "authority", authority.String())
	return reg, nil
}

// SubmitReport files a new report for a token under the caller's registry
// and increments the registry counter. The caller must be the authority and
// must have initialized a registry first; one report per (token, authority)
// pair.
func (s *Service) SubmitReport(ctx context.Context, authority, token id.AccountID, params models.ReportParams) (*models.SafetyReport, error) {
	ctx, span := s.tracer.Start(ctx, "registry.SubmitReport")
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if authority.IsZero() || token.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "authority and token identities are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.store.GetRegistry(ctx, authority)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no registry initialized for authority %s", authority)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry")
	}

	// The counter must be provably incrementable before anything is written.
	nextTotal, err := checked.AddU64(reg.TotalReports, 1)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeArithmeticOverflow, "registry report counter would overflow")
	}

	rep := &models.SafetyReport{
		Authority:    authority,
		TokenSubject: token,
		RiskScore:    params.RiskScore,
		RiskLevel:    params.RiskLevel,
		FlagsCount:   params.FlagsCount,
		ProtocolName: params.ProtocolName,
		Timestamp:    s.clock.Now(ctx),
	}
	if err := s.store.CreateReport(ctx, rep); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.Newf(dErrors.CodeAlreadyExists, "report for token %s already exists under this authority; use update", token)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create report")
	}

	reg.TotalReports = nextTotal
	if err := s.store.UpdateRegistry(ctx, reg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registry counter")
	}

	s.metrics.ObserveReportSubmitted(rep.RiskScore)
	s.emit(ctx, audit.Event{
		Actor:   authority.String(),
		Action:  audit.ActionReportSubmitted,
		Subject: token.String(),
	})
	s.logger.InfoContext(ctx, "safety report submitted",
		"authority", authority.String(),
		"token", token.String(),
		"protocol", params.ProtocolName,
		"risk_score", params.RiskScore,
		"risk_level", params.RiskLevel.String(),
		"flags", params.FlagsCount,
	)
	return rep, nil
}

// UpdateReport overwrites the mutable fields of an existing report. Only
// the authority recorded on the report may update it; the stored owner is
// compared to the caller independently of address derivation.
func (s *Service) UpdateReport(ctx context.Context, caller, token id.AccountID, params models.ReportParams) (*models.SafetyReport, error) {
	ctx, span := s.tracer.Start(ctx, "registry.UpdateReport")
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if caller.IsZero() || token.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "caller and token identities are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rep, err := s.store.GetReport(ctx, token, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no report for token %s under authority %s", token, caller)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	if rep.Authority != caller {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not the report's authority")
	}

	rep.RiskScore = params.RiskScore
	rep.RiskLevel = params.RiskLevel
	rep.FlagsCount = params.FlagsCount
	rep.ProtocolName = params.ProtocolName
	rep.Timestamp = s.clock.Now(ctx)

	if err := s.store.UpdateReport(ctx, rep); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update report")
	}

	s.metrics.ObserveReportUpdated(rep.RiskScore)
	s.emit(ctx, audit.Event{
		Actor:   caller.String(),
		Action:  audit.ActionReportUpdated,
		Subject: token.String(),
	})
	s.logger.InfoContext(ctx, "safety report updated",
		"authority", caller.String(),
		"token", token.String(),
		"risk_score", params.RiskScore,
	)
	return rep, nil
}

// GetRegistry returns the registry for an authority.
func (s *Service) GetRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error) {
	reg, err := s.store.GetRegistry(ctx, authority)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no registry initialized for authority %s", authority)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry")
	}
	return reg, nil
}

// GetReport returns the report for a (token, authority) pair.
func (s *Service) GetReport(ctx context.Context, token, authority id.AccountID) (*models.SafetyReport, error) {
	rep, err := s.store.GetReport(ctx, token, authority)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no report for token %s under authority %s", token, authority)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	return rep, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err.Error())
	}
}
