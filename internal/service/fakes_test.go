package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"badgeauth/internal/entity"
	"badgeauth/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeEmployeeRepo is an in-memory EmployeeRepository with the same
// conditional-update semantics as the Postgres implementation.
type fakeEmployeeRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*entity.Employee
	byBadge map[string]uuid.UUID
	clock   *fakeClock
}

func newFakeEmployeeRepo(clock *fakeClock) *fakeEmployeeRepo {
	return &fakeEmployeeRepo{
		byID:    make(map[uuid.UUID]*entity.Employee),
		byBadge: make(map[string]uuid.UUID),
		clock:   clock,
	}
}

func (r *fakeEmployeeRepo) add(employee *entity.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if employee.ID == uuid.Nil {
		employee.ID = uuid.New()
	}
	r.byID[employee.ID] = employee
	r.byBadge[employee.BadgeNumber] = employee.ID
}

func (r *fakeEmployeeRepo) snapshot(employee *entity.Employee) *entity.Employee {
	copied := *employee
	if employee.Supervisor != nil {
		supervisor := *employee.Supervisor
		copied.Supervisor = &supervisor
	}
	return &copied
}

func (r *fakeEmployeeRepo) FindByBadge(_ context.Context, badgeNumber string) (*entity.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byBadge[badgeNumber]
	if !ok {
		return nil, nil
	}
	return r.snapshot(r.byID[id]), nil
}

func (r *fakeEmployeeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	employee, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return r.snapshot(employee), nil
}

func (r *fakeEmployeeRepo) RecordFailedAttempt(_ context.Context, id uuid.UUID, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	employee, ok := r.byID[id]
	if !ok {
		return 0, nil, fmt.Errorf("employee %s not found", id)
	}
	employee.PINAttempts++
	if employee.PINAttempts >= threshold {
		lockedUntil := r.clock.Now().Add(lockFor)
		employee.PINLockedUntil = &lockedUntil
	}
	var lockedUntil *time.Time
	if employee.PINLockedUntil != nil {
		value := *employee.PINLockedUntil
		lockedUntil = &value
	}
	return employee.PINAttempts, lockedUntil, nil
}

func (r *fakeEmployeeRepo) ResetPINState(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	employee := r.byID[id]
	employee.PINAttempts = 0
	employee.PINLockedUntil = nil
	return nil
}

func (r *fakeEmployeeRepo) SetPIN(_ context.Context, id uuid.UUID, pinHash string, isDefault bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	employee := r.byID[id]
	employee.PINHash = &pinHash
	employee.PINIsDefault = isDefault
	return nil
}

func (r *fakeEmployeeRepo) SetIdentity(_ context.Context, id uuid.UUID, identityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].IdentityID = &identityID
	return nil
}

func (r *fakeEmployeeRepo) SetOTP(_ context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	employee := r.byID[id]
	employee.OTPHash = &otpHash
	employee.OTPExpiresAt = &expiresAt
	return nil
}

func (r *fakeEmployeeRepo) ConsumeOTP(_ context.Context, id uuid.UUID, otpHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	employee := r.byID[id]
	if employee.OTPHash == nil || *employee.OTPHash != otpHash {
		return false, nil
	}
	employee.OTPHash = nil
	employee.OTPExpiresAt = nil
	return true, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []entity.AuditLog
}

func (r *fakeAuditRepo) Record(_ context.Context, log *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

func (r *fakeAuditRepo) actions() []entity.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]entity.AuditAction, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type fakeIdentityProvider struct {
	mu          sync.Mutex
	accounts    map[string]string
	ensureCalls int
	issueCalls  int
	ensureErr   error
	issueErr    error
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{accounts: make(map[string]string)}
}

func (p *fakeIdentityProvider) EnsureAccount(_ context.Context, accountKey string, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureCalls++
	if p.ensureErr != nil {
		return "", p.ensureErr
	}
	if id, ok := p.accounts[accountKey]; ok {
		return id, nil
	}
	id := "idp-" + accountKey
	p.accounts[accountKey] = id
	return id, nil
}

func (p *fakeIdentityProvider) IssueExchangeToken(_ context.Context, identityID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issueCalls++
	if p.issueErr != nil {
		return "", p.issueErr
	}
	return fmt.Sprintf("exchange-%s-%d", identityID, p.issueCalls), nil
}

type sentCode struct {
	to   string
	code string
}

type fakeGateway struct {
	mu      sync.Mutex
	sent    []sentCode
	sendErr error
}

func (g *fakeGateway) SendCode(_ context.Context, toEmail string, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, sentCode{to: toEmail, code: code})
	return nil
}

func (g *fakeGateway) lastCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return ""
	}
	return g.sent[len(g.sent)-1].code
}

type testEnv struct {
	service  *BadgeAuthService
	broker   *SessionBroker
	repo     *fakeEmployeeRepo
	audits   *fakeAuditRepo
	identity *fakeIdentityProvider
	gateway  *fakeGateway
	clock    *fakeClock
}

const testDefaultPIN = "11112222"

func newTestEnv() *testEnv {
	clock := newFakeClock()
	repo := newFakeEmployeeRepo(clock)
	audits := &fakeAuditRepo{}
	identity := newFakeIdentityProvider()
	gateway := &fakeGateway{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	broker := NewSessionBroker(identity, logger)
	svc := NewBadgeAuthService(
		repo,
		audits,
		broker,
		gateway,
		clock,
		AuthConfig{DefaultPIN: testDefaultPIN},
		logger,
	)
	return &testEnv{
		service:  svc,
		broker:   broker,
		repo:     repo,
		audits:   audits,
		identity: identity,
		gateway:  gateway,
		clock:    clock,
	}
}

func (e *testEnv) addBadge(badgeNumber string, name string) *entity.Employee {
	employee := &entity.Employee{BadgeNumber: badgeNumber, FullName: name}
	e.repo.add(employee)
	return employee
}

func (e *testEnv) addBadgeWithSupervisor(badgeNumber string, name string, supervisorEmail string) *entity.Employee {
	email := supervisorEmail
	supervisor := &entity.Employee{BadgeNumber: badgeNumber + "-sup", FullName: "Supervisor", Email: &email}
	e.repo.add(supervisor)

	employee := &entity.Employee{
		BadgeNumber:  badgeNumber,
		FullName:     name,
		SupervisorID: &supervisor.ID,
		Supervisor:   supervisor,
	}
	e.repo.add(employee)
	return employee
}

func (e *testEnv) addAccount(badgeNumber string, name string, pin string) *entity.Employee {
	employee := e.addBadge(badgeNumber, name)
	identityID := "idp-existing-" + badgeNumber
	hash := utils.HashSecret(pin)
	employee.IdentityID = &identityID
	employee.PINHash = &hash
	return employee
}
