package reference

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBearerNotFound is returned when a bearer token does not correspond to
// any Reference currently cached by a BearerManager.
var ErrBearerNotFound = errors.New("reference: bearer token not bound to a cached reference")

// bearerClaims is the JWT payload backing a bearer token: it carries no
// authority of its own, only a lookup key into the cache that holds the
// actual validated Reference. This adapts the teacher's batch-JWT pattern
// (kshinn-umbra-gateway/x402.TokenManager) from "JWT carries the credit
// counter" to "JWT is a session cache key for an already-validated
// capability chain", so a client doesn't have to resend the whole
// delegation chain on every call within one session.
type bearerClaims struct {
	jwt.RegisteredClaims
	RefKey string `json:"rk"`
}

// BearerManager issues and validates short-lived bearer tokens that stand
// in for a Reference already validated once over a session.
type BearerManager struct {
	secret []byte
	expiry time.Duration
	cache  map[string]*Reference
}

// NewBearerManager creates a BearerManager signing tokens with secret and
// expiring them after ttl.
func NewBearerManager(secret []byte, ttl time.Duration) *BearerManager {
	return &BearerManager{
		secret: secret,
		expiry: ttl,
		cache:  make(map[string]*Reference),
	}
}

// Issue caches ref (which MUST already have passed Validate) and returns a
// signed bearer token referring to it.
func (m *BearerManager) Issue(ref *Reference) (string, error) {
	key := refKey(ref)
	m.cache[key] = ref

	now := time.Now()
	claims := &bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
		RefKey: key,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("reference: signing bearer token: %w", err)
	}
	return signed, nil
}

// Resolve validates tokenString's signature/expiry and returns the cached
// Reference it refers to.
func (m *BearerManager) Resolve(tokenString string) (*Reference, error) {
	token, err := jwt.ParseWithClaims(tokenString, &bearerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reference: parsing bearer token: %w", err)
	}
	claims, ok := token.Claims.(*bearerClaims)
	if !ok || !token.Valid {
		return nil, errors.New("reference: invalid bearer token claims")
	}

	ref, ok := m.cache[claims.RefKey]
	if !ok {
		return nil, ErrBearerNotFound
	}
	return ref, nil
}

// Revoke drops ref from the cache; any outstanding bearer token for it
// will resolve to ErrBearerNotFound.
func (m *BearerManager) Revoke(ref *Reference) {
	delete(m.cache, refKey(ref))
}

func refKey(ref *Reference) string {
	data, _ := ref.MarshalBinary()
	sum := sha256.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
