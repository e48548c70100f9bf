//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/adapter"
	"bookshop-access/internal/domain/ports/repository"
)

// =============================
// Repositories (in-memory)
// =============================

type MockPaymentRepo struct {
	mu    sync.RWMutex
	byTx  map[string]*model.PaymentRecord
	count int // total Insert attempts, for idempotence assertions

	InsertFunc func(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) (bool, error)
	FindFunc   func(ctx context.Context, tx repository.Tx, providerTxID string) (*model.PaymentRecord, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{byTx: make(map[string]*model.PaymentRecord)}
}

func (m *MockPaymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) (bool, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	if _, ok := m.byTx[p.ProviderTransactionID]; ok {
		return false, nil
	}
	cp := *p
	m.byTx[p.ProviderTransactionID] = &cp
	return true, nil
}

func (m *MockPaymentRepo) FindByProviderTxID(ctx context.Context, tx repository.Tx, providerTxID string) (*model.PaymentRecord, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, tx, providerTxID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byTx[providerTxID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, verifiedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byTx {
		if p.ID == id && p.Status == model.PaymentStatusPending {
			p.Status = status
			p.VerifiedAt = verifiedAt
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentRecord
	for _, p := range m.byTx {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) SumVerifiedByPeriod(ctx context.Context, tx repository.Tx, period string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum float64
	for _, p := range m.byTx {
		if p.Status == model.PaymentStatusSuccess && p.TrustLevel != model.TrustTestMode {
			sum += p.Amount
		}
	}
	return sum, nil
}

// Records returns how many ledger rows exist.
func (m *MockPaymentRepo) Records() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byTx)
}

type MockEntitlementRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Entitlement // key userID|service

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.Entitlement) error
}

var _ repository.EntitlementRepository = (*MockEntitlementRepo)(nil)

func NewMockEntitlementRepo() *MockEntitlementRepo {
	return &MockEntitlementRepo{store: make(map[string]*model.Entitlement)}
}

func entKey(userID, service string) string { return userID + "|" + service }

func (m *MockEntitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[entKey(e.UserID, e.ServiceName)] = &cp
	return nil
}

func (m *MockEntitlementRepo) FindByUserAndService(ctx context.Context, tx repository.Tx, userID, service string) (*model.Entitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[entKey(userID, service)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEntitlementRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Entitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Entitlement
	for _, e := range m.store {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type MockSessionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Session

	DeactivateFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.SessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{store: make(map[string]*model.Session)}
}

func (m *MockSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSessionRepo) TouchLastActive(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[id]; ok {
		s.LastActiveAt = at
	}
	return nil
}

func (m *MockSessionRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (m *MockSessionRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if s.IsActive && !now.Before(s.ExpiresAt) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

// Get exposes the stored session for assertions.
func (m *MockSessionRepo) Get(id string) *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.store[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

type MockAuditRepo struct {
	mu     sync.RWMutex
	Events []*model.AuditEvent

	AppendFunc func(ctx context.Context, tx repository.Tx, e *model.AuditEvent) error
}

var _ repository.AuditRepository = (*MockAuditRepo)(nil)

func NewMockAuditRepo() *MockAuditRepo { return &MockAuditRepo{} }

func (m *MockAuditRepo) Append(ctx context.Context, tx repository.Tx, e *model.AuditEvent) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Events = append(m.Events, &cp)
	return nil
}

func (m *MockAuditRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.AuditEvent
	for _, e := range m.Events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Actions lists recorded audit actions in order.
func (m *MockAuditRepo) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Action)
	}
	return out
}

// =============================
// Caches, tx manager, token codec
// =============================

type MockVerdictCache struct {
	mu    sync.Mutex
	store map[string]*model.ValidationVerdict
	Hits  int
	Puts  int
}

var _ repository.SessionVerdictCache = (*MockVerdictCache)(nil)

func NewMockVerdictCache() *MockVerdictCache {
	return &MockVerdictCache{store: make(map[string]*model.ValidationVerdict)}
}

func (m *MockVerdictCache) Get(ctx context.Context, sessionID string) *model.ValidationVerdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[sessionID]
	if !ok {
		return nil
	}
	m.Hits++
	cp := *v
	cp.Cached = true
	return &cp
}

func (m *MockVerdictCache) Put(ctx context.Context, sessionID string, v *model.ValidationVerdict) {
	if v == nil || !v.IsValid {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	cp := *v
	m.store[sessionID] = &cp
}

func (m *MockVerdictCache) Invalidate(ctx context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, sessionID)
}

// MockTxManager runs the callback without a real transaction.
type MockTxManager struct{}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// MockNotifier counts purchase confirmations and can be made to fail.
type MockNotifier struct {
	mu    sync.Mutex
	Sent  int
	Fail  error
	Calls []string // userID values in order
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier { return &MockNotifier{} }

func (m *MockNotifier) PurchaseConfirmed(ctx context.Context, userID, service string, amount float64, currency string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Sent++
	m.Calls = append(m.Calls, userID)
	return nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
