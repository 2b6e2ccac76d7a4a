package store

import (
	"fmt"

	"tokensafe/internal/ledger"
	"tokensafe/internal/registry/models"
	id "tokensafe/pkg/domain"
)

// Record type names feed the discriminator; renaming one is a breaking
// layout change.
const (
	registryRecordType = "Registry"
	reportRecordType   = "SafetyReport"
)

// Fixed record sizes, set at creation and stable across versions.
const (
	// discriminator + authority + total_reports + nonce
	registryRecordSize = ledger.DiscriminatorSize + id.AccountIDSize + 8 + 1

	// discriminator + authority + token + score + level + flags +
	// (length prefix + name area) + timestamp + nonce
	reportRecordSize = ledger.DiscriminatorSize + 2*id.AccountIDSize + 3 +
		4 + models.MaxProtocolNameLen + 8 + 1
)

func encodeRegistry(reg *models.Registry) []byte {
	e := ledger.NewEncoder(registryRecordType, registryRecordSize)
	e.PutBytes(reg.Authority[:])
	e.PutUint64(reg.TotalReports)
	e.PutUint8(reg.Nonce)
	return e.Bytes()
}

func decodeRegistry(data []byte) (*models.Registry, error) {
	d, err := ledger.NewDecoder(registryRecordType, data)
	if err != nil {
		return nil, err
	}
	var reg models.Registry
	copy(reg.Authority[:], d.Bytes(id.AccountIDSize))
	reg.TotalReports = d.Uint64()
	reg.Nonce = d.Uint8()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return &reg, nil
}

func encodeReport(rep *models.SafetyReport) []byte {
	e := ledger.NewEncoder(reportRecordType, reportRecordSize)
	e.PutBytes(rep.Authority[:])
	e.PutBytes(rep.TokenSubject[:])
	e.PutUint8(rep.RiskScore)
	e.PutUint8(uint8(rep.RiskLevel))
	e.PutUint8(rep.FlagsCount)
	e.PutBoundedString(rep.ProtocolName, models.MaxProtocolNameLen)
	e.PutInt64(rep.Timestamp)
	e.PutUint8(rep.Nonce)
	return e.Bytes()
}

func decodeReport(data []byte) (*models.SafetyReport, error) {
	d, err := ledger.NewDecoder(reportRecordType, data)
	if err != nil {
		return nil, err
	}
	var rep models.SafetyReport
	copy(rep.Authority[:], d.Bytes(id.AccountIDSize))
	copy(rep.TokenSubject[:], d.Bytes(id.AccountIDSize))
	rep.RiskScore = d.Uint8()
	rep.RiskLevel = models.RiskLevel(d.Uint8())
	rep.FlagsCount = d.Uint8()
	rep.ProtocolName = d.BoundedString(models.MaxProtocolNameLen)
	rep.Timestamp = d.Int64()
	rep.Nonce = d.Uint8()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode safety report: %w", err)
	}
	return &rep, nil
}
