package service

import (
	"context"
	"fmt"

	"badgeauth/internal/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Namespace for deriving synthetic account keys from badge numbers. Changing
// it orphans every previously created identity.
var identityNamespace = uuid.MustParse("9a1de7f2-44b1-4f02-9c45-6c91e3d0aab7")

// SessionBroker translates a verified employee into a redeemable credential.
// It holds no session state of its own; the Identity Provider owns sessions.
type SessionBroker struct {
	provider IdentityProvider
	logger   *logrus.Logger
}

func NewSessionBroker(provider IdentityProvider, logger *logrus.Logger) *SessionBroker {
	return &SessionBroker{provider: provider, logger: logger}
}

// SyntheticID derives the deterministic account key for a badge number.
func (b *SessionBroker) SyntheticID(badgeNumber string) string {
	return uuid.NewSHA1(identityNamespace, []byte(badgeNumber)).String()
}

// EnsureIdentity returns the employee's Identity Provider account id,
// creating the account on first call. Repeated calls are idempotent.
func (b *SessionBroker) EnsureIdentity(ctx context.Context, employee *entity.Employee) (string, error) {
	if employee.IdentityID != nil {
		return *employee.IdentityID, nil
	}
	identityID, err := b.provider.EnsureAccount(ctx, b.SyntheticID(employee.BadgeNumber), employee.FullName)
	if err != nil {
		return "", fmt.Errorf("%w: ensure account: %v", ErrUpstream, err)
	}
	b.logger.WithFields(logrus.Fields{
		"badge_number": employee.BadgeNumber,
		"identity_id":  identityID,
	}).Info("identity account created")
	return identityID, nil
}

// IssueSessionHandle requests a single-use exchange token the client redeems
// for a live session.
func (b *SessionBroker) IssueSessionHandle(ctx context.Context, identityID string) (string, error) {
	token, err := b.provider.IssueExchangeToken(ctx, identityID)
	if err != nil {
		return "", fmt.Errorf("%w: issue exchange token: %v", ErrUpstream, err)
	}
	return token, nil
}
