package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed, tampered, or unsigned tokens.
	ErrTokenInvalid = errors.New("invalid session token")

	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("session token expired")

	// ErrTokenRevoked indicates an explicitly logged-out token.
	ErrTokenRevoked = errors.New("session token revoked")
)

// Claims are the fields carried inside a session token.
type Claims struct {
	Username  string
	ExpiresAt time.Time
}

// signToken builds a stateless session token:
//
//	base64url(username ":" expiryUnix) ":" hex(HMAC-SHA256(secret, payload))
//
// Any instance holding the secret can validate it without a lookup.
func signToken(secret []byte, username string, expiresAt time.Time) string {
	payload := fmt.Sprintf("%s:%d", username, expiresAt.Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + ":" + hex.EncodeToString(sign(secret, encoded))
}

// parseToken verifies the signature and expiry of a token and returns
// its claims. The signature is checked in constant time before the
// payload is ever decoded.
func parseToken(secret []byte, token string, now time.Time) (Claims, error) {
	lastColon := strings.LastIndexByte(token, ':')
	if lastColon <= 0 || lastColon == len(token)-1 {
		return Claims{}, ErrTokenInvalid
	}
	encoded := token[:lastColon]

	providedSig, err := hex.DecodeString(token[lastColon+1:])
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	if !hmac.Equal(providedSig, sign(secret, encoded)) {
		return Claims{}, ErrTokenInvalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	sep := strings.LastIndexByte(string(payload), ':')
	if sep <= 0 {
		return Claims{}, ErrTokenInvalid
	}
	username := string(payload[:sep])
	expiryUnix, err := strconv.ParseInt(string(payload[sep+1:]), 10, 64)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}

	expiresAt := time.Unix(expiryUnix, 0)
	if now.After(expiresAt) {
		return Claims{}, ErrTokenExpired
	}

	return Claims{Username: username, ExpiresAt: expiresAt}, nil
}

func sign(secret []byte, payload string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
