package entity

import (
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BadgeNumber string    `gorm:"type:varchar(32);uniqueIndex;not null"`
	FullName    string    `gorm:"type:varchar(255);not null"`
	Email       *string   `gorm:"type:varchar(255)"`

	// IdentityID and PINHash are set together when an account is
	// bootstrapped; an employee has an account iff both are non-nil.
	IdentityID   *string `gorm:"type:varchar(64);index"`
	PINHash      *string `gorm:"type:text"`
	PINIsDefault bool    `gorm:"default:false"`

	PINAttempts    int `gorm:"default:0;not null"`
	PINLockedUntil *time.Time

	// At most one outstanding one-time code; both fields are written and
	// cleared as a pair.
	OTPHash      *string `gorm:"type:text"`
	OTPExpiresAt *time.Time

	SupervisorID *uuid.UUID `gorm:"type:uuid;index"`
	Supervisor   *Employee  `gorm:"foreignKey:SupervisorID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAccount reports whether an Identity Provider account has been created
// for this badge.
func (e *Employee) HasAccount() bool {
	return e.IdentityID != nil && e.PINHash != nil
}

// LockedAt reports whether a lockout window is active at the given instant.
func (e *Employee) LockedAt(now time.Time) bool {
	return e.PINLockedUntil != nil && now.Before(*e.PINLockedUntil)
}
