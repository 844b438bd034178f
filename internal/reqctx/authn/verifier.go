package authn

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ironlake-data/catalog/internal/domain"
)

// Verifier validates RS256 bearer tokens against a JWKS endpoint and
// translates their claims into a domain.Actor. It never issues tokens.
type Verifier struct {
	cache *jwksCache
	adminClaim string
	roleClaim string
	subjectClaim string
}

// NewVerifier builds a Verifier backed by the JWKS document at jwksURL,
// refetched at most once per cacheDuration.
func NewVerifier(jwksURL string, cacheDuration time.Duration) *Verifier {
	if cacheDuration <= 0 {
		cacheDuration = time.Hour
	}

	return &Verifier{
		cache: newJWKSCache(jwksURL, cacheDuration),
		adminClaim: "admin",
		roleClaim: "assumed_role_id",
		subjectClaim: "sub",
	}
}

// VerifyBearer parses and validates tokenString, returning the Actor it
// authenticates. A missing kid, an unresolvable key, an expired token or a
// bad signature all surface as AuthenticationRequiredError.
func (v *Verifier) VerifyBearer(ctx context.Context, tokenString string) (domain.Actor, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token header missing kid")
		}

		set, err := v.cache.get(ctx)
		if err != nil {
			return nil, err
		}

		return set.lookup(kid)
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return domain.Actor{}, domain.AuthenticationRequiredError{Message: "invalid bearer token", Err: err}
	}

	sub, _ := claims[v.subjectClaim].(string)
	if sub == "" {
		return domain.Actor{}, domain.AuthenticationRequiredError{Message: "token carries no subject claim"}
	}

	admin, _ := claims[v.adminClaim].(bool)

	roleID, _ := claims[v.roleClaim].(string)

	var actor domain.Actor
	if roleID != "" {
		actor = domain.NewRoleActor(sub, roleID)
	} else {
		actor = domain.NewPrincipalActor(sub)
	}

	actor.AdminPrivileges = admin

	return actor, nil
}
