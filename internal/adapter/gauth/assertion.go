package gauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/user/logship/internal/domain"
)

// assertionLifetime is the validity window claimed by every assertion.
const assertionLifetime = time.Hour

// assertionClaims is the JWT payload of a service-account assertion.
type assertionClaims struct {
	Issuer    string `json:"iss"`
	Subject   string `json:"sub,omitempty"`
	Scope     string `json:"scope"`
	Audience  string `json:"aud"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

func (c assertionClaims) Valid() error { return nil }

// buildAssertion constructs and signs (RS256) the JWT assertion presented
// to the token endpoint. The subject claim is emitted only when a
// delegated subject is configured.
func buildAssertion(creds *Credentials, scope, subject string, now time.Time) (string, error) {
	iat := now.Unix()
	claims := assertionClaims{
		Issuer:    creds.ClientEmail,
		Subject:   subject,
		Scope:     scope,
		Audience:  creds.TokenURI,
		ExpiresAt: iat + int64(assertionLifetime.Seconds()),
		IssuedAt:  iat,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(creds.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSign, err)
	}
	return signed, nil
}
