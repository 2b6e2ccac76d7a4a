package jwtsigner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
)

func testAccount() id.AccountID {
	var a id.AccountID
	a[0] = 7
	return a
}

func TestIssueAndValidate(t *testing.T) {
	svc := New("test-signing-key", "tokensafe")

	token, err := svc.IssueToken(testAccount(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	account, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testAccount(), account)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := New("key-one", "tokensafe").IssueToken(testAccount(), time.Hour)
	require.NoError(t, err)

	_, err = New("key-two", "tokensafe").ValidateToken(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := New("test-signing-key", "tokensafe")
	token, err := svc.IssueToken(testAccount(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := New("test-signing-key", "tokensafe").ValidateToken("not.a.token")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
