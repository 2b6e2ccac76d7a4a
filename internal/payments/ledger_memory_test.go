package payments

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tokensafe/pkg/domain"
	"tokensafe/pkg/platform/sentinel"
)

func account(b byte) id.AccountID {
	var a id.AccountID
	a[0] = b
	return a
}

func TestCreditAndTransfer(t *testing.T) {
	l := NewInMemoryLedger()
	require.NoError(t, l.Credit(account(1), 1_000))

	require.NoError(t, l.Transfer(context.Background(), account(1), account(2), 300))
	assert.Equal(t, uint64(700), l.Balance(account(1)))
	assert.Equal(t, uint64(300), l.Balance(account(2)))
}

func TestTransferInsufficientFunds(t *testing.T) {
	l := NewInMemoryLedger()
	require.NoError(t, l.Credit(account(1), 100))

	err := l.Transfer(context.Background(), account(1), account(2), 101)
	require.ErrorIs(t, err, sentinel.ErrInsufficientFunds)

	// Nothing moved.
	assert.Equal(t, uint64(100), l.Balance(account(1)))
	assert.Equal(t, uint64(0), l.Balance(account(2)))
}

func TestTransferDestinationOverflowLeavesBalancesIntact(t *testing.T) {
	l := NewInMemoryLedger()
	require.NoError(t, l.Credit(account(1), 10))
	require.NoError(t, l.Credit(account(2), math.MaxUint64))

	err := l.Transfer(context.Background(), account(1), account(2), 10)
	require.Error(t, err)

	assert.Equal(t, uint64(10), l.Balance(account(1)))
	assert.Equal(t, uint64(math.MaxUint64), l.Balance(account(2)))
}

func TestCreditOverflow(t *testing.T) {
	l := NewInMemoryLedger()
	require.NoError(t, l.Credit(account(1), math.MaxUint64))
	assert.Error(t, l.Credit(account(1), 1))
}
