package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"tokensafe/internal/ledger"
	ledgerstore "tokensafe/internal/ledger/store"
	"tokensafe/internal/registry/models"
	"tokensafe/internal/registry/store"
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
)

type RegistryServiceSuite struct {
	suite.Suite
	svc   *Service
	clock *ledger.FixedClock
	ctx   context.Context
}

func (s *RegistryServiceSuite) SetupTest() {
	s.clock = ledger.NewFixedClock(1_700_000_000)
	svc, err := New(store.New(ledgerstore.NewInMemoryRecordStore()), s.clock)
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = context.Background()
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func account(b byte) id.AccountID {
	var a id.AccountID
	a[0] = b
	return a
}

func validParams() models.ReportParams {
	return models.ReportParams{
		ProtocolName: "raydium",
		RiskScore:    85,
		RiskLevel:    models.RiskLevelLow,
		FlagsCount:   1,
	}
}

func (s *RegistryServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.clock)
		s.Require().ErrorContains(err, "store is required")
	})

	s.Run("nil clock returns error", func() {
		_, err := New(store.New(ledgerstore.NewInMemoryRecordStore()), nil)
		s.Require().ErrorContains(err, "clock is required")
	})
}

func (s *RegistryServiceSuite) TestInitializeRegistry() {
	authority := account(1)

	s.Run("creates a registry with a zero counter", func() {
		reg, err := s.svc.InitializeRegistry(s.ctx, authority)
		s.Require().NoError(err)
		s.Equal(authority, reg.Authority)
		s.Equal(uint64(0), reg.TotalReports)
	})

	s.Run("rejects reinitialization", func() {
		_, err := s.svc.InitializeRegistry(s.ctx, authority)
		s.Require().True(dErrors.Is(err, dErrors.CodeAlreadyExists))
	})

	s.Run("rejects the zero identity", func() {
		_, err := s.svc.InitializeRegistry(s.ctx, id.AccountID{})
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("a second authority gets its own registry", func() {
		reg, err := s.svc.InitializeRegistry(s.ctx, account(2))
		s.Require().NoError(err)
		s.Equal(uint64(0), reg.TotalReports)
	})
}

func (s *RegistryServiceSuite) TestSubmitReport() {
	authority := account(1)
	_, err := s.svc.InitializeRegistry(s.ctx, authority)
	s.Require().NoError(err)

	s.Run("stores the report with the clock timestamp", func() {
		rep, err := s.svc.SubmitReport(s.ctx, authority, account(10), validParams())
		s.Require().NoError(err)
		s.Equal(authority, rep.Authority)
		s.Equal(account(10), rep.TokenSubject)
		s.Equal(int64(1_700_000_000), rep.Timestamp)
	})

	s.Run("increments the registry counter per report", func() {
		_, err := s.svc.SubmitReport(s.ctx, authority, account(11), validParams())
		s.Require().NoError(err)
		_, err = s.svc.SubmitReport(s.ctx, authority, account(12), validParams())
		s.Require().NoError(err)

		reg, err := s.svc.GetRegistry(s.ctx, authority)
		s.Require().NoError(err)
		s.Equal(uint64(3), reg.TotalReports)
	})

	s.Run("rejects a duplicate report for the same token", func() {
		_, err := s.svc.SubmitReport(s.ctx, authority, account(10), validParams())
		s.Require().True(dErrors.Is(err, dErrors.CodeAlreadyExists))

		// The failed submit must not bump the counter.
		reg, err := s.svc.GetRegistry(s.ctx, authority)
		s.Require().NoError(err)
		s.Equal(uint64(3), reg.TotalReports)
	})

	s.Run("requires an initialized registry", func() {
		_, err := s.svc.SubmitReport(s.ctx, account(9), account(10), validParams())
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("two authorities can report on the same token", func() {
		other := account(2)
		_, err := s.svc.InitializeRegistry(s.ctx, other)
		s.Require().NoError(err)
		_, err = s.svc.SubmitReport(s.ctx, other, account(10), validParams())
		s.Require().NoError(err)
	})
}

func (s *RegistryServiceSuite) TestSubmitReportValidation() {
	authority := account(1)
	_, err := s.svc.InitializeRegistry(s.ctx, authority)
	s.Require().NoError(err)

	cases := []struct {
		name   string
		mutate func(*models.ReportParams)
	}{
		{"risk score above 100", func(p *models.ReportParams) { p.RiskScore = 101 }},
		{"risk level above low", func(p *models.ReportParams) { p.RiskLevel = 3 }},
		{"protocol name above 32 bytes", func(p *models.ReportParams) { p.ProtocolName = strings.Repeat("x", 33) }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			params := validParams()
			tc.mutate(&params)
			_, err := s.svc.SubmitReport(s.ctx, authority, account(20), params)
			s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
		})
	}

	s.Run("boundary values are accepted", func() {
		params := models.ReportParams{
			ProtocolName: strings.Repeat("y", 32),
			RiskScore:    100,
			RiskLevel:    models.RiskLevelLow,
			FlagsCount:   255,
		}
		_, err := s.svc.SubmitReport(s.ctx, authority, account(21), params)
		s.Require().NoError(err)
	})

	s.Run("an empty protocol name is allowed", func() {
		params := validParams()
		params.ProtocolName = ""
		_, err := s.svc.SubmitReport(s.ctx, authority, account(22), params)
		s.Require().NoError(err)
	})
}

func (s *RegistryServiceSuite) TestUpdateReport() {
	authority := account(1)
	token := account(10)
	_, err := s.svc.InitializeRegistry(s.ctx, authority)
	s.Require().NoError(err)
	_, err = s.svc.SubmitReport(s.ctx, authority, token, validParams())
	s.Require().NoError(err)

	s.Run("overwrites mutable fields and refreshes the timestamp", func() {
		s.clock.Set(1_700_000_500)
		params := models.ReportParams{
			ProtocolName: "orca",
			RiskScore:    20,
			RiskLevel:    models.RiskLevelHigh,
			FlagsCount:   7,
		}
		rep, err := s.svc.UpdateReport(s.ctx, authority, token, params)
		s.Require().NoError(err)
		s.Equal(uint8(20), rep.RiskScore)
		s.Equal(models.RiskLevelHigh, rep.RiskLevel)
		s.Equal("orca", rep.ProtocolName)
		s.Equal(int64(1_700_000_500), rep.Timestamp)

		got, err := s.svc.GetReport(s.ctx, token, authority)
		s.Require().NoError(err)
		s.Equal(rep, got)
	})

	s.Run("does not touch the registry counter", func() {
		reg, err := s.svc.GetRegistry(s.ctx, authority)
		s.Require().NoError(err)
		s.Equal(uint64(1), reg.TotalReports)
	})

	s.Run("another identity cannot update the report", func() {
		// The intruder's derivation lands on its own (empty) slot.
		_, err := s.svc.UpdateReport(s.ctx, account(2), token, validParams())
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("validates before reading anything", func() {
		params := validParams()
		params.RiskScore = 200
		_, err := s.svc.UpdateReport(s.ctx, authority, token, params)
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("updating a missing report fails", func() {
		_, err := s.svc.UpdateReport(s.ctx, authority, account(99), validParams())
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *RegistryServiceSuite) TestReads() {
	s.Run("unknown registry returns CodeNotFound", func() {
		_, err := s.svc.GetRegistry(s.ctx, account(42))
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("unknown report returns CodeNotFound", func() {
		_, err := s.svc.GetReport(s.ctx, account(42), account(43))
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}
