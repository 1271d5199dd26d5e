package config

import (
	"encoding/hex"
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrMissingSecretKey is returned when no session signing key is configured.
// The server refuses to start without one.
var ErrMissingSecretKey = errors.New("ADMIN_SECRET_KEY is not set")

// DecodeSecretKey turns the configured secret into signing key bytes. A
// 64-character hex string is decoded to 32 raw bytes; any other value is used
// as-is.
func DecodeSecretKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingSecretKey
	}
	if len(raw) == 64 {
		if key, err := hex.DecodeString(raw); err == nil {
			return key, nil
		}
	}
	return []byte(raw), nil
}

// PostgresURL builds a postgres:// URL from its parts. It returns "" when
// host is empty so callers can fall back to the default store.
func PostgresURL(user, password, host, port, db string) string {
	if host == "" {
		return ""
	}
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

// MaskURL hides the password component of a database URL.
func MaskURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
