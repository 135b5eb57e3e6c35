package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// TokenValidator checks an access token and extracts the buyer identity.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate checks algorithm, issuer, audience and lifetime, then requires a
// subject and a known role. A tier claim, when present, must name a known tier.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) (Claims, error) {
	if tok == nil {
		return Claims{}, errors.New("auth: token is nil")
	}
	if algorithm == "" {
		return Claims{}, errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return Claims{}, fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	opts := []jwt.ValidateOption{jwt.WithClock(jwt.ClockFunc(func() time.Time { return now }))}
	if v.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return Claims{}, err
	}

	claims := Claims{UserID: tok.Subject()}
	if claims.UserID == "" {
		return Claims{}, errors.New("auth: token missing subject")
	}
	claims.Role = stringClaim(tok, claimRole)
	switch claims.Role {
	case RoleCustomer, RoleAdmin:
	default:
		return Claims{}, fmt.Errorf("auth: unknown role %q", claims.Role)
	}
	if raw := stringClaim(tok, claimTier); raw != "" {
		tier, ok := pricing.ParseTier(raw)
		if !ok {
			return Claims{}, fmt.Errorf("auth: unknown tier %q", raw)
		}
		claims.Tier = string(tier)
	}
	return claims, nil
}

func stringClaim(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
