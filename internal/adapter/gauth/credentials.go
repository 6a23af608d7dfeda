// Package gauth exchanges an offline Google service-account key for
// short-lived OAuth2 bearer tokens using the JWT-bearer grant, caching
// each token until shortly before it expires.
package gauth

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/user/logship/internal/domain"
)

// keyFile mirrors the JSON layout of a downloaded service-account key.
// Only a subset of the fields is consumed.
type keyFile struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
	UniverseDomain          string `json:"universe_domain"`
}

// Credentials is the immutable bundle parsed once from raw key bytes.
// It is shared read-only across all signing operations.
type Credentials struct {
	ProjectID   string
	ClientEmail string
	TokenURI    string
	PrivateKey  *rsa.PrivateKey
}

// ParseCredentials parses service-account key JSON into Credentials.
// Any malformed input, including an unparseable PEM private key, is
// reported as domain.ErrInvalidKey.
func ParseCredentials(data []byte) (*Credentials, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}

	switch {
	case kf.PrivateKey == "":
		return nil, fmt.Errorf("%w: missing private_key", domain.ErrInvalidKey)
	case kf.ClientEmail == "":
		return nil, fmt.Errorf("%w: missing client_email", domain.ErrInvalidKey)
	case kf.TokenURI == "":
		return nil, fmt.Errorf("%w: missing token_uri", domain.ErrInvalidKey)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(kf.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: parse private_key: %v", domain.ErrInvalidKey, err)
	}

	return &Credentials{
		ProjectID:   kf.ProjectID,
		ClientEmail: kf.ClientEmail,
		TokenURI:    kf.TokenURI,
		PrivateKey:  key,
	}, nil
}
