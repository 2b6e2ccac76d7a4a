// Package ledger defines the storage substrate the components run on: a
// byte-addressed record store with create-if-absent semantics, and the
// deterministic derivation that maps logical entities to addresses.
//
// Derivation replaces a lookup index. The same namespace and seeds always
// yield the same address, so "does this entity exist" is a single read and
// duplicate creation is caught by the store itself.
package ledger

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"tokensafe/pkg/platform/sentinel"
)

// AddressSize is the fixed byte length of a record address.
const AddressSize = 32

// Address locates exactly one record in the store.
type Address [AddressSize]byte

// ZeroAddress is never issued by derivation.
var ZeroAddress Address

// Namespace tags partition the address space per record type. Two
// derivations with different tags never collide, even with identical seeds.
const (
	NamespaceRegistry           = "registry"
	NamespaceSafetyReport       = "safety_report"
	NamespaceSubscriptionConfig = "subscription_config"
	NamespaceSubscription       = "subscription"
)

// addressDomain separates record addresses from any other use of the hash.
const addressDomain = "tokensafe:address:v1"

// String returns the hex form of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// ParseAddress decodes a 64-character hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(raw) != AddressSize {
		return a, fmt.Errorf("parse address: want %d bytes, got %d", AddressSize, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// Derive maps (namespace, seeds) to a unique address plus the nonce that
// produced it. The nonce is stored in the created record so later reads can
// re-derive and verify the address instead of trusting the caller.
//
// Nonces are tried from 255 down. A candidate is rejected only if it is the
// zero address, which makes exhaustion operationally unreachable; it is
// still a defined failure (sentinel.ErrNonceExhausted), never a panic.
func Derive(namespace string, seeds ...[]byte) (Address, uint8, error) {
	for nonce := 255; nonce >= 0; nonce-- {
		addr := deriveCandidate(namespace, uint8(nonce), seeds)
		if addr != ZeroAddress {
			return addr, uint8(nonce), nil
		}
	}
	return ZeroAddress, 0, fmt.Errorf("derive %s address: %w", namespace, sentinel.ErrNonceExhausted)
}

// DeriveWithNonce recomputes the address for a stored nonce. Used to verify
// that a record sits at the address its own fields derive to.
func DeriveWithNonce(namespace string, nonce uint8, seeds ...[]byte) Address {
	return deriveCandidate(namespace, nonce, seeds)
}

func deriveCandidate(namespace string, nonce uint8, seeds [][]byte) Address {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for oversized keys; we pass none.
		panic(err)
	}
	h.Write([]byte(addressDomain))
	h.Write([]byte{byte(len(namespace))})
	h.Write([]byte(namespace))
	for _, seed := range seeds {
		h.Write([]byte{byte(len(seed))})
		h.Write(seed)
	}
	h.Write([]byte{nonce})

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}
