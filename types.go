package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	// GetAccessTokenTTL is the short access token lifetime; the
	// reference policy is one minute.
	GetAccessTokenTTL() time.Duration
	// GetRefreshTokenTTL is the refresh token lifetime
	GetRefreshTokenTTL() time.Duration
	// GetExtendedRefreshTokenTTL applies when the caller asked to be
	// remembered.
	GetExtendedRefreshTokenTTL() time.Duration
	// GetExemptDomain is the internal mail domain whose accounts skip
	// the tenant password-expiry policy.
	GetExemptDomain() string
}

// RealmStatus is the outcome of checking a credential against the
// stored realms of an Authentication.
type RealmStatus int

const (
	// RealmPass means a realm matched and is still valid
	RealmPass RealmStatus = iota
	// RealmExpired means a realm matched but its password aged out of
	// the tenant policy.
	RealmExpired
	// RealmFail means no realm matched
	RealmFail
)

func (s RealmStatus) String() string {
	switch s {
	case RealmPass:
		return "pass"
	case RealmExpired:
		return "expired"
	case RealmFail:
		return "fail"
	}
	return fmt.Sprintf("realmstatus(%d)", int(s))
}

// RealmChecker decides whether the presented credential passes. It
// always receives the full Authentication (realms preloaded) and the
// resolved PartyGroup, and performs any system-expiry lookup itself.
// The PartyGroup may be nil when the caller holds no membership yet.
type RealmChecker func(ctx context.Context, authentication *Authentication, partyGroup *PartyGroup) (RealmStatus, error)

// RequestMeta carries the per-request details attached to issued
// tokens and audit entries.
type RequestMeta struct {
	Time    time.Time
	IP      string
	Browser string
	Version string
}

// LoginResult is what a successful credential exchange returns
type LoginResult struct {
	AuthenticationID string `json:"authenticationId,omitempty"`
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken,omitempty"`
	Expiry           int64  `json:"expiry,omitempty"`
	User             string `json:"user,omitempty"`
	Customer         string `json:"customer,omitempty"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
