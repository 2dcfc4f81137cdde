// Package confirm issues and checks the one-time confirmation codes mailed
// at signup. A code is bound to the account state it was issued for and
// carries its own issue time, so nothing has to be stored to verify it.
package confirm

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidCode = errors.New("invalid confirmation code")
	ErrExpiredCode = errors.New("confirmation code expired")
	ErrUsedCode    = errors.New("confirmation code already used")
)

const (
	macHexLen = 20
	keyInfo   = "reviewhub confirmation code v1"
)

// Subject is the account state a code is bound to. Changing any field,
// including LastLogin, invalidates every code issued before the change.
type Subject struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	LastLogin *time.Time
}

type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer derives the signing key from secret with HKDF.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("confirm: empty secret")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("confirm: ttl must be positive, got %s", ttl)
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("confirm: derive key: %w", err)
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns "<issued-at base36>-<mac>".
func (i *Issuer) Issue(s Subject) string {
	ts := strconv.FormatInt(i.now().Unix(), 36)
	return ts + "-" + i.mac(s, ts)
}

// Verify checks the code against the subject's current state.
func (i *Issuer) Verify(s Subject, code string) error {
	ts, mac, ok := strings.Cut(strings.TrimSpace(code), "-")
	if !ok || len(mac) != macHexLen {
		return ErrInvalidCode
	}
	issued, err := strconv.ParseInt(ts, 36, 64)
	if err != nil {
		return ErrInvalidCode
	}
	if !hmac.Equal([]byte(mac), []byte(i.mac(s, ts))) {
		return ErrInvalidCode
	}
	age := i.now().Sub(time.Unix(issued, 0))
	if age > i.ttl || age < -time.Minute {
		return ErrExpiredCode
	}
	return nil
}

func (i *Issuer) mac(s Subject, ts string) string {
	var last string
	if s.LastLogin != nil {
		last = strconv.FormatInt(s.LastLogin.UTC().UnixNano(), 10)
	}
	h := hmac.New(sha256.New, i.key)
	for _, part := range []string{s.UserID, s.Username, s.Email, s.Role, last, ts} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:macHexLen]
}
