// Package authn validates bearer tokens against an external JWKS endpoint.
package authn

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
)

// jwk is the subset of RFC 7517 fields this service needs to reconstruct
// an RSA public key: the other JWK member types (EC, oct, OKP) are not
// accepted, since this service only ever verifies RS256-signed tokens.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N string `json:"n"`
	E string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

func (s *jwkSet) lookup(kid string) (*rsa.PublicKey, error) {
	for _, k := range s.Keys {
		if k.Kid != kid {
			continue
		}

		if k.Kty != "RSA" {
			return nil, fmt.Errorf("jwk %q has unsupported key type %q", kid, k.Kty)
		}

		return k.rsaPublicKey()
	}

	return nil, fmt.Errorf("no jwk found for kid %q", kid)
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode jwk modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode jwk exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

func fetchJWKSet(ctx context.Context, client *http.Client, url string) (*jwkSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks response: %w", err)
	}

	return &set, nil
}
