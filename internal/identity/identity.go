// Package identity resolves who a request belongs to: an authenticated user or an anonymous
// visitor carrying a client-held guest key. Every cart, wishlist and checkout operation is keyed
// by the Identity value produced here.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	// GuestKeyPrefix starts every guest key.
	GuestKeyPrefix = "DFS"
	// GuestKeyLength is the exact length of a well-formed guest key.
	GuestKeyLength = 16

	// GuestKeyHeader carries the guest key on requests.
	GuestKeyHeader = "X-USER-KEY"
)

// ErrInvalidIdentity is returned when a request has neither a valid session nor a well-formed guest key.
var ErrInvalidIdentity = errors.New("user key is invalid")

// Identity is either an authenticated user (UserID > 0) or a guest (GuestKey set). The zero value is
// "nobody" and owns no cart.
type Identity struct {
	UserID   int64
	GuestKey string
}

// User returns the identity of an authenticated user.
func User(id int64) Identity {
	return Identity{UserID: id}
}

// Guest returns the identity of an anonymous visitor.
func Guest(key string) Identity {
	return Identity{GuestKey: key}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID > 0
}

func (i Identity) IsGuest() bool {
	return !i.IsAuthenticated() && i.GuestKey != ""
}

func (i Identity) IsZero() bool {
	return !i.IsAuthenticated() && !i.IsGuest()
}

func (i Identity) String() string {
	switch {
	case i.IsAuthenticated():
		return "user:" + strconv.FormatInt(i.UserID, 10)
	case i.IsGuest():
		return "guest:" + i.GuestKey
	default:
		return "anonymous"
	}
}

// ValidGuestKey reports whether key has the guest key shape. The shape is an anti-typo convention,
// not a secret: anyone holding the key can use the guest's cart.
func ValidGuestKey(key string) bool {
	return len(key) == GuestKeyLength && strings.HasPrefix(key, GuestKeyPrefix)
}

// NewGuestKey mints a key: the prefix, three random digits and the unix time in seconds.
// Keys are not stored; one becomes real when a cart or wishlist row is first created for it.
func NewGuestKey(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900))
	if err != nil {
		return "", fmt.Errorf("failed to generate guest key: %w", err)
	}
	key := fmt.Sprintf("%s%03d%d", GuestKeyPrefix, n.Int64()+100, now.Unix())
	if len(key) > GuestKeyLength {
		key = key[:GuestKeyLength]
	}
	for len(key) < GuestKeyLength {
		key += "0"
	}
	return key, nil
}

// SessionVerifier turns a bearer token into a user id.
type SessionVerifier interface {
	VerifySession(token string) (int64, error)
}

// Resolver decides the identity of a request from its headers.
type Resolver struct {
	sessions SessionVerifier
}

func NewResolver(sessions SessionVerifier) *Resolver {
	return &Resolver{sessions: sessions}
}

// Resolve prefers a verified bearer session and falls back to the guest key. A bearer token that
// fails verification is ignored rather than rejected so an expired session still reaches the
// visitor's guest cart.
func (r *Resolver) Resolve(authorization, guestKey string) (Identity, error) {
	if token, ok := BearerToken(authorization); ok && r.sessions != nil {
		if userID, err := r.sessions.VerifySession(token); err == nil && userID > 0 {
			return User(userID), nil
		}
	}
	guestKey = strings.TrimSpace(guestKey)
	if ValidGuestKey(guestKey) {
		return Guest(guestKey), nil
	}
	return Identity{}, ErrInvalidIdentity
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(authorization string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(authorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

type ctxKey int

const identityKey ctxKey = 1

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored in ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && !id.IsZero()
}
