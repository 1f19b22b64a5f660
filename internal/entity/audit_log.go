package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditLoginSuccess   AuditAction = "login_success"
	AuditLoginFailed    AuditAction = "login_failed"
	AuditLockoutSet     AuditAction = "lockout_set"
	AuditLockoutCleared AuditAction = "lockout_cleared"
	AuditOTPIssued      AuditAction = "otp_issued"
	AuditOTPConsumed    AuditAction = "otp_consumed"
	AuditPINChanged     AuditAction = "pin_changed"
	AuditAccountCreated AuditAction = "account_created"
)

type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	BadgeNumber string      `gorm:"type:varchar(32);not null;index"`
	Action      AuditAction `gorm:"type:varchar(32);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
