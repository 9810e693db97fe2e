package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "storefront-service"

// Claims are the registered claims of a session token; Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Keys signs and verifies session tokens.
type Keys struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewKeys(secret string, ttl time.Duration) (*Keys, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Keys{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (k *Keys) TTL() time.Duration {
	return k.ttl
}

// GenerateToken issues a session token for userID.
func (k *Keys) GenerateToken(userID int64) (string, error) {
	now := k.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token.
func (k *Keys) ValidateToken(tokenStr string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (any, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(k.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	return claims, nil
}

// VerifySession returns the user id carried by a valid token.
func (k *Keys) VerifySession(tokenStr string) (int64, error) {
	claims, err := k.ValidateToken(tokenStr)
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return userID, nil
}
