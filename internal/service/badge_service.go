package service

import (
	"context"
	"encoding/json"
	"time"

	"badgeauth/internal/entity"
	"badgeauth/internal/repository"
	"badgeauth/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// BadgeAuthService owns the badge/PIN credential lifecycle: bootstrap,
// verification, attempt counting, lockout and the OTP-gated recovery flows.
type BadgeAuthService struct {
	employees repository.EmployeeRepository
	audits    repository.AuditLogRepository
	broker    *SessionBroker
	notifier  NotificationGateway
	clock     Clock
	config    AuthConfig
	logger    *logrus.Logger
}

func NewBadgeAuthService(
	employees repository.EmployeeRepository,
	audits repository.AuditLogRepository,
	broker *SessionBroker,
	notifier NotificationGateway,
	clock Clock,
	config AuthConfig,
	logger *logrus.Logger,
) *BadgeAuthService {
	return &BadgeAuthService{
		employees: employees,
		audits:    audits,
		broker:    broker,
		notifier:  notifier,
		clock:     clock,
		config:    config,
		logger:    logger,
	}
}

// Lookup resolves a badge number without side effects.
func (s *BadgeAuthService) Lookup(ctx context.Context, badgeNumber string) (*LookupResult, error) {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return nil, err
	}

	result := &LookupResult{
		Exists:       true,
		HasAccount:   employee.HasAccount(),
		EmployeeName: employee.FullName,
	}
	if contact, ok := supervisorContact(employee); ok {
		result.MaskedSupervisorContact = utils.MaskEmail(contact)
	}
	if employee.HasAccount() {
		result.RequiresPINChange = employee.PINIsDefault
	}
	return result, nil
}

// QuickSignup bootstraps an account for an unregistered badge. The supplied
// PIN must equal the configured default; the QR code handed to the employee
// encodes it.
func (s *BadgeAuthService) QuickSignup(ctx context.Context, badgeNumber string, suppliedPIN string) (*SessionResult, error) {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return nil, err
	}
	if employee.HasAccount() {
		return nil, ErrAccountExists
	}
	if suppliedPIN != s.config.DefaultPIN {
		return nil, ErrUnauthorized
	}

	identityID, err := s.broker.EnsureIdentity(ctx, employee)
	if err != nil {
		return nil, err
	}
	if err := s.employees.SetIdentity(ctx, employee.ID, identityID); err != nil {
		return nil, err
	}
	if err := s.employees.SetPIN(ctx, employee.ID, utils.HashSecret(s.config.DefaultPIN), true); err != nil {
		return nil, err
	}
	if err := s.employees.ResetPINState(ctx, employee.ID); err != nil {
		return nil, err
	}
	s.audit(ctx, badgeNumber, entity.AuditAccountCreated, map[string]any{"source": "quick_signup"})

	token, err := s.broker.IssueSessionHandle(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		ExchangeToken:     token,
		IdentityID:        identityID,
		EmployeeName:      employee.FullName,
		RequiresPINChange: true,
	}, nil
}

// Login verifies a badge/PIN pair and issues a session handle. Verification
// failures count toward the lockout threshold.
func (s *BadgeAuthService) Login(ctx context.Context, badgeNumber string, suppliedPIN string) (*SessionResult, error) {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return nil, err
	}
	if !employee.HasAccount() {
		return nil, ErrNoAccount
	}
	if err := s.verifyStoredPIN(ctx, employee, suppliedPIN); err != nil {
		return nil, err
	}
	if err := s.clearPINFailures(ctx, employee); err != nil {
		return nil, err
	}
	s.audit(ctx, badgeNumber, entity.AuditLoginSuccess, nil)

	token, err := s.broker.IssueSessionHandle(ctx, *employee.IdentityID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		ExchangeToken:     token,
		IdentityID:        *employee.IdentityID,
		EmployeeName:      employee.FullName,
		RequiresPINChange: employee.PINIsDefault,
	}, nil
}

// ChangePIN rotates the PIN after re-verifying the current one. The current
// PIN check shares the login lockout counters: a locked badge cannot change
// its PIN, and wrong guesses here count toward the threshold.
func (s *BadgeAuthService) ChangePIN(ctx context.Context, badgeNumber string, currentPIN string, newPIN string) error {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return err
	}
	if !employee.HasAccount() {
		return ErrNoAccount
	}
	if err := s.verifyStoredPIN(ctx, employee, currentPIN); err != nil {
		return err
	}
	if !s.validPIN(newPIN) {
		return ErrPINValidation
	}

	if err := s.employees.SetPIN(ctx, employee.ID, utils.HashSecret(newPIN), false); err != nil {
		return err
	}
	if err := s.clearPINFailures(ctx, employee); err != nil {
		return err
	}
	s.audit(ctx, badgeNumber, entity.AuditPINChanged, map[string]any{"source": "change_pin"})
	return nil
}

func (s *BadgeAuthService) findBadge(ctx context.Context, badgeNumber string) (*entity.Employee, error) {
	if badgeNumber == "" {
		return nil, ErrInvalidInput
	}
	employee, err := s.employees.FindByBadge(ctx, badgeNumber)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrBadgeNotFound
	}
	return employee, nil
}

// verifyStoredPIN enforces the lockout window, compares digests and records
// failures through the repository's atomic counter so concurrent wrong
// guesses are never lost.
func (s *BadgeAuthService) verifyStoredPIN(ctx context.Context, employee *entity.Employee, suppliedPIN string) error {
	now := s.now()
	if employee.LockedAt(now) {
		s.logger.WithField("badge_number", employee.BadgeNumber).Warn("login rejected, badge locked out")
		return ErrLocked
	}
	if utils.SecretMatches(*employee.PINHash, suppliedPIN) {
		return nil
	}

	attempts, lockedUntil, err := s.employees.RecordFailedAttempt(
		ctx, employee.ID, s.config.lockoutThreshold(), s.config.lockoutWindow())
	if err != nil {
		return err
	}
	s.audit(ctx, employee.BadgeNumber, entity.AuditLoginFailed, map[string]any{"attempts": attempts})

	attemptsLeft := s.config.lockoutThreshold() - attempts
	if attemptsLeft <= 0 {
		attemptsLeft = 0
		if lockedUntil != nil {
			s.audit(ctx, employee.BadgeNumber, entity.AuditLockoutSet, map[string]any{"locked_until": lockedUntil})
			s.logger.WithFields(logrus.Fields{
				"badge_number": employee.BadgeNumber,
				"locked_until": lockedUntil,
			}).Warn("lockout window armed")
		}
	}
	return &PINMismatchError{AttemptsLeft: attemptsLeft}
}

// clearPINFailures resets the counter and lockout after any successful
// verification.
func (s *BadgeAuthService) clearPINFailures(ctx context.Context, employee *entity.Employee) error {
	if err := s.employees.ResetPINState(ctx, employee.ID); err != nil {
		return err
	}
	if employee.PINAttempts > 0 || employee.PINLockedUntil != nil {
		s.audit(ctx, employee.BadgeNumber, entity.AuditLockoutCleared, nil)
	}
	return nil
}

func (s *BadgeAuthService) validPIN(pin string) bool {
	if len(pin) < s.config.pinMinLen() || len(pin) > s.config.pinMaxLen() {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func supervisorContact(employee *entity.Employee) (string, bool) {
	if employee.Supervisor == nil || employee.Supervisor.Email == nil || *employee.Supervisor.Email == "" {
		return "", false
	}
	return *employee.Supervisor.Email, true
}

func (s *BadgeAuthService) audit(ctx context.Context, badgeNumber string, action entity.AuditAction, metadata map[string]any) {
	if s.audits == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			s.logger.WithError(err).Error("audit metadata marshal failed")
			return
		}
		payload = datatypes.JSON(bytes)
	}
	log := &entity.AuditLog{
		BadgeNumber: badgeNumber,
		Action:      action,
		Metadata:    payload,
	}
	if err := s.audits.Record(ctx, log); err != nil {
		s.logger.WithError(err).WithField("badge_number", badgeNumber).Error("audit record failed")
	}
}

func (s *BadgeAuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
