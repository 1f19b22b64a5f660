package service

import (
	"context"

	"badgeauth/internal/entity"
	"badgeauth/internal/utils"

	"github.com/sirupsen/logrus"
)

// SignupRequest starts supervisor-verified onboarding for a badge with no
// account yet: a one-time code is issued and delivered to the supervisor.
func (s *BadgeAuthService) SignupRequest(ctx context.Context, badgeNumber string) (*CodeRequestResult, error) {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return nil, err
	}
	if employee.HasAccount() {
		return nil, ErrAccountExists
	}
	return s.issueOTP(ctx, employee)
}

// ResetRequest starts supervisor-verified PIN recovery for an existing
// account.
func (s *BadgeAuthService) ResetRequest(ctx context.Context, badgeNumber string) (*CodeRequestResult, error) {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return nil, err
	}
	if !employee.HasAccount() {
		return nil, ErrNoAccount
	}
	return s.issueOTP(ctx, employee)
}

// SignupVerify redeems a one-time code to create the account and set the
// first custom PIN, then issues a session handle.
func (s *BadgeAuthService) SignupVerify(ctx context.Context, badgeNumber string, code string, newPIN string) (*SessionResult, error) {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return nil, err
	}
	identityID, err := s.otpGatedSetPIN(ctx, employee, code, newPIN)
	if err != nil {
		return nil, err
	}

	token, err := s.broker.IssueSessionHandle(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		ExchangeToken: token,
		IdentityID:    identityID,
		EmployeeName:  employee.FullName,
	}, nil
}

// ResetVerify redeems a one-time code to set a new PIN on an existing
// account. Any standing lockout is cleared; the supervisor already vouched
// for the holder.
func (s *BadgeAuthService) ResetVerify(ctx context.Context, badgeNumber string, code string, newPIN string) error {
	employee, err := s.findBadge(ctx, badgeNumber)
	if err != nil {
		return err
	}
	_, err = s.otpGatedSetPIN(ctx, employee, code, newPIN)
	return err
}

// issueOTP generates a fresh code, stores its digest with an expiry as one
// atomic pair (invalidating any outstanding code) and dispatches the
// plaintext to the supervisor. Gateway unavailability degrades to logging
// the code; issuance itself never fails on delivery.
func (s *BadgeAuthService) issueOTP(ctx context.Context, employee *entity.Employee) (*CodeRequestResult, error) {
	contact, ok := supervisorContact(employee)
	if !ok {
		return nil, ErrNoSupervisor
	}

	code, err := utils.GenerateNumericCode(s.config.otpDigits())
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.config.otpTTL())
	if err := s.employees.SetOTP(ctx, employee.ID, utils.HashSecret(code), expiresAt); err != nil {
		return nil, err
	}

	masked := utils.MaskEmail(contact)
	s.audit(ctx, employee.BadgeNumber, entity.AuditOTPIssued, map[string]any{
		"contact":    masked,
		"expires_at": expiresAt,
	})

	if s.notifier == nil {
		// Degraded mode for deployments without a notification integration:
		// the code is handed to operators through the log instead.
		s.logger.WithFields(logrus.Fields{
			"badge_number": employee.BadgeNumber,
			"code":         code,
		}).Warn("notification gateway not configured, one-time code logged only")
	} else if err := s.notifier.SendCode(ctx, contact, code); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"badge_number": employee.BadgeNumber,
			"code":         code,
		}).Warn("notification gateway unavailable, one-time code logged only")
	}

	return &CodeRequestResult{MaskedSupervisorContact: masked}, nil
}

// otpGatedSetPIN is the shared tail of signup-verify and reset-verify:
// consume the code, make sure an identity exists, store the new PIN and
// clear the attempt/lockout state unconditionally.
func (s *BadgeAuthService) otpGatedSetPIN(ctx context.Context, employee *entity.Employee, code string, newPIN string) (string, error) {
	if !s.validPIN(newPIN) {
		return "", ErrPINValidation
	}
	if err := s.consumeOTP(ctx, employee, code); err != nil {
		return "", err
	}

	identityID := ""
	if employee.HasAccount() {
		identityID = *employee.IdentityID
	} else {
		created, err := s.broker.EnsureIdentity(ctx, employee)
		if err != nil {
			return "", err
		}
		if err := s.employees.SetIdentity(ctx, employee.ID, created); err != nil {
			return "", err
		}
		s.audit(ctx, employee.BadgeNumber, entity.AuditAccountCreated, map[string]any{"source": "signup_verify"})
		identityID = created
	}

	if err := s.employees.SetPIN(ctx, employee.ID, utils.HashSecret(newPIN), false); err != nil {
		return "", err
	}
	if err := s.employees.ResetPINState(ctx, employee.ID); err != nil {
		return "", err
	}
	s.audit(ctx, employee.BadgeNumber, entity.AuditPINChanged, map[string]any{"source": "otp_verify"})
	return identityID, nil
}

// consumeOTP validates the supplied code against the stored pair and clears
// it exactly once. Failed checks leave the stored code untouched.
func (s *BadgeAuthService) consumeOTP(ctx context.Context, employee *entity.Employee, code string) error {
	if employee.OTPHash == nil || employee.OTPExpiresAt == nil {
		return ErrInvalidCode
	}
	if !utils.SecretMatches(*employee.OTPHash, code) {
		return ErrInvalidCode
	}
	if !s.now().Before(*employee.OTPExpiresAt) {
		return ErrCodeExpired
	}

	// Conditional clear: if two redemptions race, only one sees the row.
	consumed, err := s.employees.ConsumeOTP(ctx, employee.ID, *employee.OTPHash)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidCode
	}
	s.audit(ctx, employee.BadgeNumber, entity.AuditOTPConsumed, nil)
	return nil
}
