// Package models defines the registry component's record types: one
// Registry per authority, one SafetyReport per (token, authority) pair.
package models

import (
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
)

// MaxProtocolNameLen is the byte limit for a report's protocol name.
const MaxProtocolNameLen = 32

// MaxRiskScore is the upper bound of the 0-100 score, higher = safer.
const MaxRiskScore = 100

// RiskLevel classifies a report. Lower values are riskier.
type RiskLevel uint8

const (
	RiskLevelHigh   RiskLevel = 0
	RiskLevelMedium RiskLevel = 1
	RiskLevelLow    RiskLevel = 2
)

func (l RiskLevel) IsValid() bool {
	return l <= RiskLevelLow
}

func (l RiskLevel) String() string {
	switch l {
	case RiskLevelHigh:
		return "high"
	case RiskLevelMedium:
		return "medium"
	case RiskLevelLow:
		return "low"
	default:
		return "unknown"
	}
}

// Registry tracks an authority's report activity. Exactly one exists per
// authority; TotalReports only ever increments.
type Registry struct {
	Authority    id.AccountID
	TotalReports uint64
	Nonce        uint8
}

// SafetyReport is one authority's analysis of one token.
type SafetyReport struct {
	Authority    id.AccountID
	TokenSubject id.AccountID
	RiskScore    uint8
	RiskLevel    RiskLevel
	FlagsCount   uint8
	ProtocolName string
	Timestamp    int64
	Nonce        uint8
}

// ReportParams carries the mutable fields of a report through submit and
// update.
type ReportParams struct {
	ProtocolName string
	RiskScore    uint8
	RiskLevel    RiskLevel
	FlagsCount   uint8
}

// Validate checks the range constraints shared by submit and update. It
// runs before any read or write so an invalid request mutates nothing.
func (p ReportParams) Validate() error {
	if p.RiskScore > MaxRiskScore {
		return dErrors.Newf(dErrors.CodeValidation, "risk score %d exceeds maximum %d", p.RiskScore, MaxRiskScore)
	}
	if !p.RiskLevel.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "risk level %d is not high (0), medium (1), or low (2)", p.RiskLevel)
	}
	if len(p.ProtocolName) > MaxProtocolNameLen {
		return dErrors.Newf(dErrors.CodeValidation, "protocol name is %d bytes, limit is %d", len(p.ProtocolName), MaxProtocolNameLen)
	}
	return nil
}
