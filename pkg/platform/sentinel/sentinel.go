package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Record stores and collaborators
// return these (optionally wrapped) so services can translate them into coded
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist at the address
// - ErrAlreadyExists: a record already occupies the address
// - ErrInsufficientFunds: payer balance below the transfer amount
// - ErrNonceExhausted: address derivation ran out of candidate nonces
// - ErrUnavailable: backing store or collaborator temporarily unreachable
//
// For validation errors (bad input, out-of-range fields), use
// pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNonceExhausted    = errors.New("nonce exhausted")
	ErrUnavailable       = errors.New("unavailable")
)
