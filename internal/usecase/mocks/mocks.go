package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase"
)

// MockTransactionManager hands out MockTransactions.
type MockTransactionManager struct {
	mu    sync.Mutex
	began int

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	m.began++
	m.mu.Unlock()
	return &MockTransaction{}, nil
}

// Began returns how many transactions were started.
func (m *MockTransactionManager) Began() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.began
}

// MockTransaction records undo actions of the in-memory repositories so that
// Rollback restores their state, and releases row locks on finish.
type MockTransaction struct {
	mu       sync.Mutex
	done     bool
	undo     []func()
	onFinish []func()

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.finish(false)
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	m.finish(true)
	return nil
}

func (m *MockTransaction) finish(rollback bool) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	undo, onFinish := m.undo, m.onFinish
	m.undo, m.onFinish = nil, nil
	m.mu.Unlock()

	if rollback {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}
	for _, fn := range onFinish {
		fn()
	}
}

func recordUndo(tx usecase.Transaction, fn func()) {
	if mt, ok := tx.(*MockTransaction); ok {
		mt.mu.Lock()
		mt.undo = append(mt.undo, fn)
		mt.mu.Unlock()
	}
}

func recordFinish(tx usecase.Transaction, fn func()) {
	if mt, ok := tx.(*MockTransaction); ok {
		mt.mu.Lock()
		mt.onFinish = append(mt.onFinish, fn)
		mt.mu.Unlock()
	}
}

// rowLocks emulates row-level write locks held until the owning transaction ends.
type rowLocks struct {
	mu     sync.Mutex
	cond   *sync.Cond
	owners map[domain.AccountKey]usecase.Transaction
}

func newRowLocks() *rowLocks {
	l := &rowLocks{owners: make(map[domain.AccountKey]usecase.Transaction)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *rowLocks) lock(tx usecase.Transaction, key domain.AccountKey) {
	if _, ok := tx.(*MockTransaction); !ok {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		owner, held := l.owners[key]
		if !held {
			break
		}
		if owner == tx {
			return
		}
		l.cond.Wait()
	}

	l.owners[key] = tx
	recordFinish(tx, func() {
		l.mu.Lock()
		delete(l.owners, key)
		l.mu.Unlock()
		l.cond.Broadcast()
	})
}

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[domain.AccountKey]*domain.Account
	locks    *rowLocks
	applied  []domain.AccountKey

	EnsureExistsFunc    func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	ApplyDeltaFunc      func(ctx context.Context, tx usecase.Transaction, key domain.AccountKey, delta int64, nonNegative bool, updatedAt time.Time) (int64, error)
	GetByKeyFunc        func(ctx context.Context, key domain.AccountKey) (*domain.Account, error)
	ListDustEscrowsFunc func(ctx context.Context, threshold int64, limit int) ([]*domain.Account, error)
	SumLiabilitiesFunc  func(ctx context.Context) (int64, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[domain.AccountKey]*domain.Account),
		locks:    newRowLocks(),
	}
}

// SetBalance seeds a balance outside of any transaction.
func (m *MockAccountRepository) SetBalance(key domain.AccountKey, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[key]
	if !ok {
		acc = domain.NewAccount(key, time.Now().UTC())
		m.accounts[key] = acc
	}
	acc.Balance = balance
}

// Balance returns the current balance of key, zero when absent.
func (m *MockAccountRepository) Balance(key domain.AccountKey) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[key]; ok {
		return acc.Balance
	}
	return 0
}

// Total returns the sum of all balances.
func (m *MockAccountRepository) Total() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, acc := range m.accounts {
		total += acc.Balance
	}
	return total
}

// Balances returns a copy of every stored balance.
func (m *MockAccountRepository) Balances() map[domain.AccountKey]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.AccountKey]int64, len(m.accounts))
	for key, acc := range m.accounts {
		out[key] = acc.Balance
	}
	return out
}

// Applied returns the accounts in the order ApplyDelta touched them.
func (m *MockAccountRepository) Applied() []domain.AccountKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.AccountKey(nil), m.applied...)
}

func (m *MockAccountRepository) EnsureExists(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.EnsureExistsFunc != nil {
		return m.EnsureExistsFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.Key]; ok {
		return nil
	}
	copied := *account
	m.accounts[account.Key] = &copied
	recordUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.accounts, account.Key)
	})
	return nil
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, key domain.AccountKey, delta int64, nonNegative bool, updatedAt time.Time) (int64, error) {
	if m.ApplyDeltaFunc != nil {
		return m.ApplyDeltaFunc(ctx, tx, key, delta, nonNegative, updatedAt)
	}

	m.locks.lock(tx, key)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.applied = append(m.applied, key)

	acc, ok := m.accounts[key]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	if nonNegative && acc.Balance+delta < 0 {
		return 0, domain.ErrInsufficientBalance
	}

	prev, prevVersion, prevUpdated := acc.Balance, acc.Version, acc.UpdatedAt
	acc.Balance += delta
	acc.Version++
	acc.UpdatedAt = updatedAt

	recordUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		acc.Balance, acc.Version, acc.UpdatedAt = prev, prevVersion, prevUpdated
	})

	return acc.Balance, nil
}

func (m *MockAccountRepository) GetByKey(ctx context.Context, key domain.AccountKey) (*domain.Account, error) {
	if m.GetByKeyFunc != nil {
		return m.GetByKeyFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[key]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) ListDustEscrows(ctx context.Context, threshold int64, limit int) ([]*domain.Account, error) {
	if m.ListDustEscrowsFunc != nil {
		return m.ListDustEscrowsFunc(ctx, threshold, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Account
	for _, acc := range m.accounts {
		if acc.Type == domain.AccountEscrow && acc.Balance > 0 && acc.Balance <= threshold {
			copied := *acc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockAccountRepository) SumLiabilities(ctx context.Context) (int64, error) {
	if m.SumLiabilitiesFunc != nil {
		return m.SumLiabilitiesFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, acc := range m.accounts {
		if acc.Type.IsLiability() {
			total += acc.Balance
		}
	}
	return total, nil
}

// MockLedgerTransactionRepository is an in-memory LedgerTransactionRepository.
type MockLedgerTransactionRepository struct {
	mu    sync.RWMutex
	byKey map[string]*domain.LedgerTransaction

	InsertIfAbsentFunc      func(ctx context.Context, tx usecase.Transaction, ltx *domain.LedgerTransaction) (bool, error)
	GetByIdempotencyKeyFunc func(ctx context.Context, tx usecase.Transaction, key string) (*domain.LedgerTransaction, error)
}

func NewMockLedgerTransactionRepository() *MockLedgerTransactionRepository {
	return &MockLedgerTransactionRepository{
		byKey: make(map[string]*domain.LedgerTransaction),
	}
}

// Count returns the number of recorded transactions.
func (m *MockLedgerTransactionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byKey)
}

func (m *MockLedgerTransactionRepository) InsertIfAbsent(ctx context.Context, tx usecase.Transaction, ltx *domain.LedgerTransaction) (bool, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, tx, ltx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[ltx.IdempotencyKey]; ok {
		return false, nil
	}
	m.byKey[ltx.IdempotencyKey] = ltx
	recordUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.byKey, ltx.IdempotencyKey)
	})
	return true, nil
}

func (m *MockLedgerTransactionRepository) GetByIdempotencyKey(ctx context.Context, tx usecase.Transaction, key string) (*domain.LedgerTransaction, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, tx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ltx, ok := m.byKey[key]; ok {
		return ltx, nil
	}
	return nil, domain.NewError(domain.KindNotFound, "ledger transaction %q not found", key)
}

// MockEntryRepository is an in-memory EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries []*domain.Entry

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	GetByTransactionFunc func(ctx context.Context, transactionRef string) ([]*domain.Entry, error)
	GetByAccountFunc     func(ctx context.Context, key domain.AccountKey, after *domain.Cursor, limit int) ([]*domain.Entry, error)
	GetByDealFunc        func(ctx context.Context, dealID string, after *domain.Cursor, limit int) ([]*domain.Entry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{}
}

// All returns every stored entry.
func (m *MockEntryRepository) All() []*domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Entry(nil), m.entries...)
}

// Seed stores entries outside of any transaction.
func (m *MockEntryRepository) Seed(entries ...*domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	recordUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.entries {
			if e == entry {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockEntryRepository) GetByTransaction(ctx context.Context, transactionRef string) ([]*domain.Entry, error) {
	if m.GetByTransactionFunc != nil {
		return m.GetByTransactionFunc(ctx, transactionRef)
	}
	return m.filter(nil, 0, func(e *domain.Entry) bool { return e.TransactionRef == transactionRef }), nil
}

func (m *MockEntryRepository) GetByAccount(ctx context.Context, key domain.AccountKey, after *domain.Cursor, limit int) ([]*domain.Entry, error) {
	if m.GetByAccountFunc != nil {
		return m.GetByAccountFunc(ctx, key, after, limit)
	}
	return m.filter(after, limit, func(e *domain.Entry) bool { return e.AccountKey == key }), nil
}

func (m *MockEntryRepository) GetByDeal(ctx context.Context, dealID string, after *domain.Cursor, limit int) ([]*domain.Entry, error) {
	if m.GetByDealFunc != nil {
		return m.GetByDealFunc(ctx, dealID, after, limit)
	}
	return m.filter(after, limit, func(e *domain.Entry) bool { return e.DealID != nil && *e.DealID == dealID }), nil
}

// filter returns matching entries ordered by (created_at, id) descending,
// strictly after the cursor.
func (m *MockEntryRepository) filter(after *domain.Cursor, limit int, match func(*domain.Entry) bool) []*domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Entry
	for _, e := range m.entries {
		if match(e) {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if after != nil {
		kept := out[:0:0]
		for _, e := range out {
			if e.CreatedAt.Before(after.CreatedAt) || (e.CreatedAt.Equal(after.CreatedAt) && e.ID < after.ID) {
				kept = append(kept, e)
			}
		}
		out = kept
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MockLedgerRepository computes consistency from the in-memory account and entry repositories.
type MockLedgerRepository struct {
	Accounts *MockAccountRepository
	Entries  *MockEntryRepository

	CheckConsistencyFunc func(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
	ListBalanceDriftFunc func(ctx context.Context, limit int) ([]domain.BalanceDrift, error)
}

func NewMockLedgerRepository(accounts *MockAccountRepository, entries *MockEntryRepository) *MockLedgerRepository {
	return &MockLedgerRepository{Accounts: accounts, Entries: entries}
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	if m.CheckConsistencyFunc != nil {
		return m.CheckConsistencyFunc(ctx)
	}
	var totalDelta int64
	for _, e := range m.Entries.All() {
		totalDelta += e.Delta
	}
	return decimal.NewFromInt(m.Accounts.Total()), decimal.NewFromInt(totalDelta), nil
}

func (m *MockLedgerRepository) ListBalanceDrift(ctx context.Context, limit int) ([]domain.BalanceDrift, error) {
	if m.ListBalanceDriftFunc != nil {
		return m.ListBalanceDriftFunc(ctx, limit)
	}
	sums := make(map[domain.AccountKey]int64)
	for _, e := range m.Entries.All() {
		sums[e.AccountKey] += e.Delta
	}
	var drift []domain.BalanceDrift
	for key, balance := range m.Accounts.Balances() {
		if balance != sums[key] {
			drift = append(drift, domain.BalanceDrift{Key: key, Balance: balance, EntryTotal: sums[key]})
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].Key < drift[j].Key })
	if len(drift) > limit {
		drift = drift[:limit]
	}
	return drift, nil
}

// MockTonTransactionRepository is an in-memory TonTransactionRepository.
type MockTonTransactionRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.TonTransaction
	order []string

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, ttx *domain.TonTransaction) error
	UpdateStatusFunc func(ctx context.Context, tx usecase.Transaction, update domain.StatusUpdate) error
	ListByStatusFunc func(ctx context.Context, direction domain.Direction, status domain.TxStatus, limit int) ([]*domain.TonTransaction, error)
}

func NewMockTonTransactionRepository() *MockTonTransactionRepository {
	return &MockTonTransactionRepository{
		byID: make(map[string]*domain.TonTransaction),
	}
}

// Seed stores a record outside of any transaction.
func (m *MockTonTransactionRepository) Seed(ttx *domain.TonTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[ttx.ID]; !exists {
		m.order = append(m.order, ttx.ID)
	}
	copied := *ttx
	m.byID[ttx.ID] = &copied
}

// Get returns a copy of the stored record or nil.
func (m *MockTonTransactionRepository) Get(id string) *domain.TonTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.byID[id]; ok {
		copied := *t
		return &copied
	}
	return nil
}

// ByDeal returns copies of all records of a deal in creation order.
func (m *MockTonTransactionRepository) ByDeal(dealID string) []*domain.TonTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TonTransaction
	for _, id := range m.order {
		if t := m.byID[id]; t.DealID == dealID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out
}

func (m *MockTonTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, ttx *domain.TonTransaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, ttx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[ttx.ID]; ok {
		return fmt.Errorf("ton transaction %s already exists", ttx.ID)
	}
	copied := *ttx
	m.byID[ttx.ID] = &copied
	m.order = append(m.order, ttx.ID)
	recordUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.byID, ttx.ID)
		for i, id := range m.order {
			if id == ttx.ID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockTonTransactionRepository) GetByID(ctx context.Context, id string) (*domain.TonTransaction, error) {
	if t := m.Get(id); t != nil {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTonTransactionRepository) GetActiveDeposit(ctx context.Context, dealID string) (*domain.TonTransaction, error) {
	for _, t := range m.ByDeal(dealID) {
		if t.Operation != domain.OperationDeposit {
			continue
		}
		switch t.Status {
		case domain.StatusPending, domain.StatusAwaitingOperatorReview, domain.StatusConfirmed:
			return t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTonTransactionRepository) GetLatestOutbound(ctx context.Context, dealID string, op domain.Operation) (*domain.TonTransaction, error) {
	var latest *domain.TonTransaction
	for _, t := range m.ByDeal(dealID) {
		if t.Direction == domain.DirectionOut && t.Operation == op {
			latest = t
		}
	}
	if latest == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return latest, nil
}

func (m *MockTonTransactionRepository) ListClosedDeposits(ctx context.Context, closedSince time.Time, limit int) ([]*domain.TonTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TonTransaction
	for _, id := range m.order {
		t := m.byID[id]
		closed := t.Status == domain.StatusTimeout || t.Status == domain.StatusRejected
		if t.Direction == domain.DirectionIn && closed && !t.UpdatedAt.Before(closedSince) {
			copied := *t
			out = append(out, &copied)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockTonTransactionRepository) ListByStatus(ctx context.Context, direction domain.Direction, status domain.TxStatus, limit int) ([]*domain.TonTransaction, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, direction, status, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TonTransaction
	for _, id := range m.order {
		t := m.byID[id]
		if t.Direction == direction && t.Status == status {
			copied := *t
			out = append(out, &copied)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockTonTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, update domain.StatusUpdate) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, update)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byID[update.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.Version != update.ExpectedVersion {
		return domain.ErrVersionConflict
	}

	prev := *t
	t.Status = update.Status
	t.TxHash = update.TxHash
	t.FirstSeenHeight = update.FirstSeenHeight
	t.ReviewedBy = update.ReviewedBy
	t.FailureReason = update.FailureReason
	t.ReceivedAmount = update.ReceivedAmount
	t.Fee = update.Fee
	t.Lt = update.Lt
	t.Confirmations = update.Confirmations
	t.UpdatedAt = update.UpdatedAt
	t.Version++

	recordUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		*t = prev
	})
	return nil
}

func (m *MockTonTransactionRepository) HasSettlement(ctx context.Context, dealID string) (bool, error) {
	for _, t := range m.ByDeal(dealID) {
		if t.Direction == domain.DirectionOut && (t.Status == domain.StatusSubmitted || t.Status == domain.StatusConfirmed) {
			return true, nil
		}
	}
	return false, nil
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	mu      sync.RWMutex
	entries []*domain.OutboxEntry

	CreateFunc        func(ctx context.Context, tx usecase.Transaction, entry *domain.OutboxEntry) error
	GetPendingFunc    func(ctx context.Context, limit int) ([]*domain.OutboxEntry, error)
	MarkDeliveredFunc func(ctx context.Context, id string, deliveredAt time.Time) error
	MarkFailedFunc    func(ctx context.Context, id string, lastError string) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// All returns copies of every stored entry in insertion order.
func (m *MockOutboxRepository) All() []domain.OutboxEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.OutboxEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out
}

// ByType returns copies of the entries of one event type.
func (m *MockOutboxRepository) ByType(eventType domain.EventType) []domain.OutboxEntry {
	var out []domain.OutboxEntry
	for _, e := range m.All() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.OutboxEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.IdempotencyKey == entry.IdempotencyKey {
			return nil
		}
	}
	m.entries = append(m.entries, entry)
	recordUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.entries {
			if e == entry {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEntry
	for _, e := range m.entries {
		if e.Status == domain.OutboxPending {
			copied := *e
			out = append(out, &copied)
		}
	}
	// Least retried first, then insertion order
	sort.SliceStable(out, func(i, j int) bool { return out[i].RetryCount < out[j].RetryCount })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	if m.MarkDeliveredFunc != nil {
		return m.MarkDeliveredFunc(ctx, id, deliveredAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = domain.OutboxDelivered
			e.DeliveredAt = &deliveredAt
			return nil
		}
	}
	return domain.NewError(domain.KindNotFound, "outbox entry %s not found", id)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, lastError)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.RetryCount++
			e.LastError = lastError
			return nil
		}
	}
	return domain.NewError(domain.KindNotFound, "outbox entry %s not found", id)
}

func (m *MockOutboxRepository) DeleteDelivered(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0:0]
	var deleted int64
	for _, e := range m.entries {
		if e.Status == domain.OutboxDelivered && e.DeliveredAt != nil && e.DeliveredAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

// MockPayoutAddressRepository is an in-memory PayoutAddressRepository.
type MockPayoutAddressRepository struct {
	mu        sync.RWMutex
	addresses map[string]*domain.PayoutAddress

	GetFunc func(ctx context.Context, userID string) (*domain.PayoutAddress, error)
}

func NewMockPayoutAddressRepository() *MockPayoutAddressRepository {
	return &MockPayoutAddressRepository{addresses: make(map[string]*domain.PayoutAddress)}
}

func (m *MockPayoutAddressRepository) Get(ctx context.Context, userID string) (*domain.PayoutAddress, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.addresses[userID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, domain.ErrPayoutAddressNotFound
}

func (m *MockPayoutAddressRepository) Upsert(ctx context.Context, address *domain.PayoutAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *address
	m.addresses[address.UserID] = &copied
	return nil
}

// MockIDGenerator returns sequential, lexically ordered ids.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%06d", m.counter)
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string]string

	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, keys ...string) error
}

// ErrCacheMiss is returned by MockCache.Get for absent keys.
var ErrCacheMiss = fmt.Errorf("cache miss")

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

// Has reports whether key is cached.
func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", ErrCacheMiss
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, keys...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// MockLocker is an in-process Locker.
type MockLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string

	TryAcquireFunc func(ctx context.Context, key string, ttl time.Duration) (usecase.Lock, bool, error)
	AcquireFunc    func(ctx context.Context, key string, ttl, wait time.Duration) (usecase.Lock, error)
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]bool)}
}

// Hold marks key as held by another instance.
func (m *MockLocker) Hold(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[key] = true
}

// IsHeld reports whether key is currently held.
func (m *MockLocker) IsHeld(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[key]
}

// Acquired returns the keys acquired so far in order.
func (m *MockLocker) Acquired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acquired...)
}

func (m *MockLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (usecase.Lock, bool, error) {
	if m.TryAcquireFunc != nil {
		return m.TryAcquireFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, false, nil
	}
	m.held[key] = true
	m.acquired = append(m.acquired, key)
	return &mockLock{locker: m, key: key}, true, nil
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (usecase.Lock, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, key, ttl, wait)
	}
	deadline := time.Now().Add(wait)
	for {
		lock, ok, err := m.TryAcquire(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return lock, nil
		}
		if time.Now().After(deadline) {
			return nil, domain.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type mockLock struct {
	locker *MockLocker
	key    string
}

func (l *mockLock) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	return nil
}

// MockClock is a settable Clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
