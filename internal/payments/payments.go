// Package payments defines the value-transfer collaborator. The components
// treat a transfer as synchronous and atomic: either it fully succeeds
// before any record is written, or the operation fails with nothing moved.
package payments

import (
	"context"

	id "tokensafe/pkg/domain"
)

// Transferrer moves native-currency value between identities. Amounts are
// in the smallest native unit.
//
// Implementations return sentinel.ErrInsufficientFunds when the payer's
// balance cannot cover the amount.
type Transferrer interface {
	Transfer(ctx context.Context, from, to id.AccountID, amount uint64) error
}
