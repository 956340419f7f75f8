// Package handoff signs the transient landing-page choice carried into the
// wizard.
//
// A token binds the chosen question 1 option to the session that started the
// diagnosis and expires quickly. It is never persisted.
package handoff

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer     = "diagnosis-landing"
	defaultTTL = 5 * time.Minute
	minKeySize = 32
)

// ErrInvalid reports a token that is malformed, expired, forged, or bound to
// another session.
var ErrInvalid = errors.New("handoff token is invalid")

type claims struct {
	FirstAnswerID string `json:"first"`
	jwt.RegisteredClaims
}

// Signer issues and verifies handoff tokens.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner returns a signer using key. An empty key generates a random
// per-process key, which invalidates outstanding tokens on restart.
func NewSigner(key []byte, ttl time.Duration) (*Signer, error) {
	if len(key) == 0 {
		key = make([]byte, minKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate handoff key: %w", err)
		}
	}
	if len(key) < minKeySize {
		return nil, fmt.Errorf("handoff key must be at least %d bytes", minKeySize)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Signer{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue signs firstAnswerID for sessionID.
func (s *Signer) Issue(sessionID string, firstAnswerID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		FirstAnswerID: firstAnswerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign handoff token: %w", err)
	}
	return signed, nil
}

// Verify returns the first answer ID carried by raw when it was issued for
// sessionID and has not expired.
func (s *Signer) Verify(raw string, sessionID string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(sessionID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return c.FirstAnswerID, nil
}
