package service

import (
	"context"
	"time"
)

type AuthConfig struct {
	// DefaultPIN is the well-known bootstrap PIN delivered out of band via QR
	// code. Injected at startup so it can be rotated without a redeploy.
	DefaultPIN string

	PINMinLen int
	PINMaxLen int

	OTPDigits        int
	OTPTTL           time.Duration
	LockoutThreshold int
	LockoutWindow    time.Duration
}

// IdentityProvider is the external account system. Accounts are keyed by a
// deterministic synthetic identifier so creation is idempotent.
type IdentityProvider interface {
	EnsureAccount(ctx context.Context, accountKey string, displayName string) (string, error)
	IssueExchangeToken(ctx context.Context, identityID string) (string, error)
}

// NotificationGateway delivers a plaintext one-time code to a supervisor
// address. A nil gateway puts OTP issuance into log-only degraded mode.
type NotificationGateway interface {
	SendCode(ctx context.Context, toEmail string, code string) error
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (c AuthConfig) pinMinLen() int {
	if c.PINMinLen > 0 {
		return c.PINMinLen
	}
	return 4
}

func (c AuthConfig) pinMaxLen() int {
	if c.PINMaxLen > 0 {
		return c.PINMaxLen
	}
	return 8
}

func (c AuthConfig) otpDigits() int {
	if c.OTPDigits > 0 {
		return c.OTPDigits
	}
	return 6
}

func (c AuthConfig) otpTTL() time.Duration {
	if c.OTPTTL > 0 {
		return c.OTPTTL
	}
	return 10 * time.Minute
}

func (c AuthConfig) lockoutThreshold() int {
	if c.LockoutThreshold > 0 {
		return c.LockoutThreshold
	}
	return 5
}

func (c AuthConfig) lockoutWindow() time.Duration {
	if c.LockoutWindow > 0 {
		return c.LockoutWindow
	}
	return 15 * time.Minute
}
