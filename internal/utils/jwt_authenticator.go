package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// AuthenticatedUser holds the claims of a validated access token
type AuthenticatedUser struct {
	Sub      string   `json:"sub"`
	Iss      string   `json:"iss"`
	ClientId string   `json:"client_id"`
	Exp      int64    `json:"exp"`
	Iat      int64    `json:"iat"`
	Aud      []string `json:"aud"`
	Roles    []string `json:"roles"`
	Scopes   []string `json:"scopes"`
}

// JwtAuthenticator validates RS256 bearer tokens against a JWKS endpoint
type JwtAuthenticator struct {
	JwksUri  string
	cacheTTL time.Duration

	mu        sync.Mutex
	keySet    jwk.Set
	fetchedAt time.Time
}

func NewJwtAuthenticator(jwksUri string) *JwtAuthenticator {
	return &JwtAuthenticator{
		JwksUri:  jwksUri,
		cacheTTL: 5 * time.Minute,
	}
}

func (a *JwtAuthenticator) ValidateToken(tokenString string) (*AuthenticatedUser, error) {
	if a.JwksUri == "" {
		return nil, errors.New("JWKS URI not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		return a.fetchKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return a.mapClaimsToUser(claims)
}

// fetchKey returns the public key for kid, refreshing the cached key set when it is stale or
// does not contain kid.
func (a *JwtAuthenticator) fetchKey(ctx context.Context, kid string) (interface{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fresh := a.keySet != nil && time.Since(a.fetchedAt) < a.cacheTTL
	if fresh {
		if key, ok := a.lookupKey(kid); ok {
			return key, nil
		}
	}

	set, err := jwk.Fetch(ctx, a.JwksUri)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	a.keySet = set
	a.fetchedAt = time.Now()

	key, ok := a.lookupKey(kid)
	if !ok {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}
	return key, nil
}

func (a *JwtAuthenticator) lookupKey(kid string) (interface{}, bool) {
	var key jwk.Key
	var ok bool
	if kid != "" {
		key, ok = a.keySet.LookupKeyID(kid)
	} else if a.keySet.Len() == 1 {
		key, ok = a.keySet.Key(0)
	}
	if !ok {
		return nil, false
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, false
	}
	return raw, true
}

func (a *JwtAuthenticator) mapClaimsToUser(claims map[string]interface{}) (*AuthenticatedUser, error) {
	user := &AuthenticatedUser{}
	user.Sub, _ = claims["sub"].(string)
	user.Iss, _ = claims["iss"].(string)
	user.ClientId, _ = claims["client_id"].(string)
	user.Exp = toInt64(claims["exp"])
	user.Iat = toInt64(claims["iat"])
	user.Aud = toStringSlice(claims["aud"])
	user.Roles = toStringSlice(claims["roles"])
	user.Scopes = toStringSlice(claims["scopes"])
	return user, nil
}

func toInt64(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
