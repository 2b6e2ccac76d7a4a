// Package domain holds the identifier types shared across components.
//
// Every principal in the system (an analyst authority, a subscriber, the
// admin, the treasury, an analyzed token) is a 32-byte account identity.
// Records store these raw; transport layers use the hex form.
package domain

import (
	"encoding/hex"
	"fmt"
)

// AccountIDSize is the fixed byte length of every identity.
const AccountIDSize = 32

// AccountID is a 32-byte account identity.
type AccountID [AccountIDSize]byte

// ZeroAccountID is the all-zero identity. It is never a valid principal.
var ZeroAccountID AccountID

// ParseAccountID decodes a 64-character hex string into an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse account id: %w", err)
	}
	if len(raw) != AccountIDSize {
		return id, fmt.Errorf("parse account id: want %d bytes, got %d", AccountIDSize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// String returns the hex form of the identity.
func (id AccountID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the identity is unset.
func (id AccountID) IsZero() bool {
	return id == ZeroAccountID
}

// Bytes returns a copy of the raw identity bytes.
func (id AccountID) Bytes() []byte {
	out := make([]byte, AccountIDSize)
	copy(out, id[:])
	return out
}
