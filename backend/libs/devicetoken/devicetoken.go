package devicetoken

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the kiosk calling the card service.
type Claims struct {
	KioskID string `json:"kiosk_id"`
	jwt.RegisteredClaims
}

// Issuer signs short-lived device tokens and reuses them until shortly before expiry.
type Issuer struct {
	kioskID   string
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time

	mu      sync.Mutex
	cached  string
	renewAt time.Time
}

// NewIssuer returns a token issuer for kioskID.
func NewIssuer(kioskID, secret string, expiresIn time.Duration) (*Issuer, error) {
	if strings.TrimSpace(kioskID) == "" {
		return nil, errors.New("devicetoken: kiosk id is required")
	}
	if secret == "" {
		return nil, errors.New("devicetoken: secret is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	return &Issuer{
		kioskID:   kioskID,
		secret:    []byte(secret),
		expiresIn: expiresIn,
		now:       time.Now,
	}, nil
}

// Token returns a valid signed token.
func (i *Issuer) Token() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now().UTC()
	if i.cached != "" && now.Before(i.renewAt) {
		return i.cached, nil
	}

	claims := Claims{
		KioskID: i.kioskID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   i.kioskID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiresIn)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", err
	}
	i.cached = signed
	i.renewAt = now.Add(i.expiresIn * 4 / 5)
	return signed, nil
}

// Validate verifies a device token and returns its claims.
func Validate(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("devicetoken: unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("devicetoken: invalid claims")
	}
	if claims.KioskID == "" {
		return nil, errors.New("devicetoken: kiosk id missing")
	}
	return claims, nil
}
