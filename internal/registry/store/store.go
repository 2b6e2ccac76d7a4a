// Package store persists Registry and SafetyReport records through the
// generic record store. It owns address derivation and the binary layout;
// the service layer never sees addresses or bytes.
package store

import (
	"context"
	"fmt"

	"tokensafe/internal/ledger"
	"tokensafe/internal/registry/models"
	id "tokensafe/pkg/domain"
)

type RecordStore struct {
	records ledger.RecordStore
}

func New(records ledger.RecordStore) *RecordStore {
	return &RecordStore{records: records}
}

// RegistryAddress derives the registry address for an authority.
func RegistryAddress(authority id.AccountID) (ledger.Address, uint8, error) {
	return ledger.Derive(ledger.NamespaceRegistry, authority[:])
}

// ReportAddress derives the report address for a (token, authority) pair.
func ReportAddress(token, authority id.AccountID) (ledger.Address, uint8, error) {
	return ledger.Derive(ledger.NamespaceSafetyReport, token[:], authority[:])
}

// CreateRegistry creates the registry record for an authority with a zero
// report counter. Fails with sentinel.ErrAlreadyExists if one exists.
func (s *RecordStore) CreateRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error) {
	addr, nonce, err := RegistryAddress(authority)
	if err != nil {
		return nil, err
	}
	reg := &models.Registry{
		Authority:    authority,
		TotalReports: 0,
		Nonce:        nonce,
	}
	if err := s.records.Create(ctx, addr, registryRecordSize, encodeRegistry(reg)); err != nil {
		return nil, err
	}
	return reg, nil
}

// GetRegistry loads and verifies the registry record for an authority.
func (s *RecordStore) GetRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error) {
	addr, _, err := RegistryAddress(authority)
	if err != nil {
		return nil, err
	}
	data, err := s.records.Read(ctx, addr)
	if err != nil {
		return nil, err
	}
	reg, err := decodeRegistry(data)
	if err != nil {
		return nil, err
	}
	if got := ledger.DeriveWithNonce(ledger.NamespaceRegistry, reg.Nonce, reg.Authority[:]); got != addr {
		return nil, fmt.Errorf("registry at %s fails address verification", addr)
	}
	return reg, nil
}

// UpdateRegistry writes back a mutated registry record.
func (s *RecordStore) UpdateRegistry(ctx context.Context, reg *models.Registry) error {
	addr := ledger.DeriveWithNonce(ledger.NamespaceRegistry, reg.Nonce, reg.Authority[:])
	return s.records.Write(ctx, addr, encodeRegistry(reg))
}

// CreateReport creates a report record, assigning its derivation nonce.
// Fails with sentinel.ErrAlreadyExists if the pair is already reported.
func (s *RecordStore) CreateReport(ctx context.Context, rep *models.SafetyReport) error {
	addr, nonce, err := ReportAddress(rep.TokenSubject, rep.Authority)
	if err != nil {
		return err
	}
	rep.Nonce = nonce
	return s.records.Create(ctx, addr, reportRecordSize, encodeReport(rep))
}

// GetReport loads and verifies the report for a (token, authority) pair.
func (s *RecordStore) GetReport(ctx context.Context, token, authority id.AccountID) (*models.SafetyReport, error) {
	addr, _, err := ReportAddress(token, authority)
	if err != nil {
		return nil, err
	}
	data, err := s.records.Read(ctx, addr)
	if err != nil {
		return nil, err
	}
	rep, err := decodeReport(data)
	if err != nil {
		return nil, err
	}
	if got := ledger.DeriveWithNonce(ledger.NamespaceSafetyReport, rep.Nonce, rep.TokenSubject[:], rep.Authority[:]); got != addr {
		return nil, fmt.Errorf("safety report at %s fails address verification", addr)
	}
	return rep, nil
}

// UpdateReport writes back a mutated report record.
func (s *RecordStore) UpdateReport(ctx context.Context, rep *models.SafetyReport) error {
	addr := ledger.DeriveWithNonce(ledger.NamespaceSafetyReport, rep.Nonce, rep.TokenSubject[:], rep.Authority[:])
	return s.records.Write(ctx, addr, encodeReport(rep))
}
