// Package jwtsigner issues and validates the bearer tokens that stand in
// for the runtime's signature verification: a valid token proves the caller
// controls the account identity in its subject.
package jwtsigner

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
)

// Claims carries the authenticated account identity.
type Claims struct {
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// Service handles token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func New(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// IssueToken mints a token attesting to control of the given account.
func (s *Service) IssueToken(account id.AccountID, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Account: account.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken verifies a token and returns the account it attests to.
func (s *Service) ValidateToken(tokenString string) (id.AccountID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	account, err := id.ParseAccountID(claims.Account)
	if err != nil {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid account claim")
	}
	return account, nil
}
