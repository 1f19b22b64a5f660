package repository

import (
	"context"
	"errors"
	"time"

	"badgeauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EmployeeRepository interface {
	FindByBadge(ctx context.Context, badgeNumber string) (*entity.Employee, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Employee, error)

	// RecordFailedAttempt increments the failure counter and arms the lockout
	// in a single statement, returning the post-increment state. Concurrent
	// failures for the same badge must each land exactly once.
	RecordFailedAttempt(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration) (int, *time.Time, error)

	// ResetPINState clears the attempt counter and any lockout together.
	ResetPINState(ctx context.Context, id uuid.UUID) error

	SetPIN(ctx context.Context, id uuid.UUID, pinHash string, isDefault bool) error
	SetIdentity(ctx context.Context, id uuid.UUID, identityID string) error

	// SetOTP writes the hash/expiry pair unconditionally; a new issuance
	// always replaces any outstanding code.
	SetOTP(ctx context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) error

	// ConsumeOTP clears the pair only where the stored hash still matches,
	// reporting whether this call was the one that consumed it.
	ConsumeOTP(ctx context.Context, id uuid.UUID, otpHash string) (bool, error)
}

type employeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) FindByBadge(ctx context.Context, badgeNumber string) (*entity.Employee, error) {
	var employee entity.Employee
	err := r.db.WithContext(ctx).
		Preload("Supervisor").
		Where("badge_number = ?", badgeNumber).
		First(&employee).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &employee, err
}

func (r *employeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Employee, error) {
	var employee entity.Employee
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&employee).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &employee, err
}

func (r *employeeRepository) RecordFailedAttempt(
	ctx context.Context,
	id uuid.UUID,
	threshold int,
	lockFor time.Duration,
) (int, *time.Time, error) {

	lockedUntil := time.Now().UTC().Add(lockFor)
	var updated entity.Employee
	result := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{
			{Name: "pin_attempts"},
			{Name: "pin_locked_until"},
		}}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pin_attempts": gorm.Expr("pin_attempts + 1"),
			"pin_locked_until": gorm.Expr(
				"CASE WHEN pin_attempts + 1 >= ? THEN ?::timestamptz ELSE pin_locked_until END",
				threshold, lockedUntil,
			),
		})
	if result.Error != nil {
		return 0, nil, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, nil, gorm.ErrRecordNotFound
	}
	return updated.PINAttempts, updated.PINLockedUntil, nil
}

func (r *employeeRepository) ResetPINState(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.Employee{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pin_attempts":     0,
			"pin_locked_until": nil,
		}).Error
}

func (r *employeeRepository) SetPIN(ctx context.Context, id uuid.UUID, pinHash string, isDefault bool) error {
	return r.db.WithContext(ctx).
		Model(&entity.Employee{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pin_hash":       pinHash,
			"pin_is_default": isDefault,
		}).Error
}

func (r *employeeRepository) SetIdentity(ctx context.Context, id uuid.UUID, identityID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Employee{}).
		Where("id = ?", id).
		Update("identity_id", identityID).Error
}

func (r *employeeRepository) SetOTP(ctx context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Employee{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"otp_hash":       otpHash,
			"otp_expires_at": expiresAt,
		}).Error
}

func (r *employeeRepository) ConsumeOTP(ctx context.Context, id uuid.UUID, otpHash string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Employee{}).
		Where("id = ? AND otp_hash = ?", id, otpHash).
		Updates(map[string]any{
			"otp_hash":       nil,
			"otp_expires_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
