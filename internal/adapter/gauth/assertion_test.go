package gauth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(t *testing.T) *Credentials {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &Credentials{
		ProjectID:   "logship-test",
		ClientEmail: "logship-test@logship-test.iam.gserviceaccount.com",
		TokenURI:    "https://oauth2.googleapis.com/token",
		PrivateKey:  key,
	}
}

func TestBuildAssertion_RoundTrip(t *testing.T) {
	creds := testCredentials(t)
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	assertion, err := buildAssertion(creds, "scope-a scope-b", "delegate@example.com", now)
	require.NoError(t, err)
	require.Len(t, strings.Split(assertion, "."), 3)

	// Verifying with the corresponding public key must succeed and yield
	// the claims back.
	var claims assertionClaims
	token, err := jwt.ParseWithClaims(assertion, &claims, func(token *jwt.Token) (any, error) {
		require.IsType(t, &jwt.SigningMethodRSA{}, token.Method)
		return &creds.PrivateKey.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "RS256", token.Header["alg"])
	assert.Equal(t, "JWT", token.Header["typ"])
	assert.Equal(t, creds.ClientEmail, claims.Issuer)
	assert.Equal(t, "delegate@example.com", claims.Subject)
	assert.Equal(t, "scope-a scope-b", claims.Scope)
	assert.Equal(t, creds.TokenURI, claims.Audience)
	assert.Equal(t, now.Unix(), claims.IssuedAt)
	assert.Equal(t, now.Unix()+3600, claims.ExpiresAt)
}

func TestBuildAssertion_OmitsEmptySubject(t *testing.T) {
	creds := testCredentials(t)

	assertion, err := buildAssertion(creds, "scope", "", time.Now())
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(assertion, ".")[1])
	require.NoError(t, err)
	assert.NotContains(t, string(payload), `"sub"`)
}

func TestBuildAssertion_TamperedSignatureFailsVerification(t *testing.T) {
	creds := testCredentials(t)

	assertion, err := buildAssertion(creds, "scope", "", time.Now())
	require.NoError(t, err)

	segments := strings.Split(assertion, ".")
	require.Len(t, segments, 3)

	sig, err := base64.RawURLEncoding.DecodeString(segments[2])
	require.NoError(t, err)
	sig[0] ^= 0x01
	segments[2] = base64.RawURLEncoding.EncodeToString(sig)
	tampered := strings.Join(segments, ".")

	_, err = jwt.ParseWithClaims(tampered, &assertionClaims{}, func(token *jwt.Token) (any, error) {
		return &creds.PrivateKey.PublicKey, nil
	})
	assert.Error(t, err)
}
