// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-stream/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	records      map[generic.Identity]generic.EmploymentRecord
	currencies   map[generic.Identity]generic.Currency
	transactions map[generic.Identity][]generic.Transaction
	idempotency  map[string]bool
	active       int
}

func NewMemory() *Memory {
	return &Memory{state: newMemoryState()}
}

func newMemoryState() memoryState {
	return memoryState{
		records:      make(map[generic.Identity]generic.EmploymentRecord),
		currencies:   make(map[generic.Identity]generic.Currency),
		transactions: make(map[generic.Identity][]generic.Transaction),
		idempotency:  make(map[string]bool),
	}
}

func (m *Memory) GetRecord(_ context.Context, id generic.Identity) (*generic.EmploymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getRecord(id), nil
}

func (m *Memory) SaveRecord(_ context.Context, rec generic.EmploymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.records[rec.Identity] = rec
	return nil
}

func (m *Memory) ListRecords(_ context.Context) ([]generic.EmploymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listRecords(), nil
}

func (m *Memory) GetCurrency(_ context.Context, id generic.Identity) (generic.Currency, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.state.currencies[id]
	return c, ok, nil
}

func (m *Memory) SaveCurrency(_ context.Context, id generic.Identity, c generic.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.currencies[id] = c
	return nil
}

func (m *Memory) ActiveCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.active, nil
}

func (m *Memory) AdjustActiveCount(_ context.Context, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.active += delta
	return nil
}

// Append adds a single ledger entry. Append-only.
func (m *Memory) Append(_ context.Context, tx generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.append(tx)
}

func (m *Memory) Load(_ context.Context, id generic.Identity) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.load(id), nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.idempotency[idempotencyKey], nil
}

// =============================================================================
// STATE HELPERS (caller holds the lock)
// =============================================================================

func (s *memoryState) getRecord(id generic.Identity) *generic.EmploymentRecord {
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	return &rec
}

func (s *memoryState) listRecords() []generic.EmploymentRecord {
	result := make([]generic.EmploymentRecord, 0, len(s.records))
	for _, rec := range s.records {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identity < result[j].Identity })
	return result
}

func (s *memoryState) append(tx generic.Transaction) error {
	if tx.IdempotencyKey != "" && s.idempotency[tx.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	txs := s.transactions[tx.Identity]

	// Binary search for insertion point; equal timestamps keep append order
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].EffectiveAt.After(tx.EffectiveAt)
	})

	txs = append(txs, generic.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	s.transactions[tx.Identity] = txs

	if tx.IdempotencyKey != "" {
		s.idempotency[tx.IdempotencyKey] = true
	}
	return nil
}

func (s *memoryState) load(id generic.Identity) []generic.Transaction {
	result := make([]generic.Transaction, len(s.transactions[id]))
	copy(result, s.transactions[id])
	return result
}

func (s *memoryState) clone() memoryState {
	c := newMemoryState()
	for k, v := range s.records {
		c.records[k] = v
	}
	for k, v := range s.currencies {
		c.currencies[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = append([]generic.Transaction{}, v...)
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	c.active = s.active
	return c
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.state.clone()

	if err := fn(&txMemoryView{state: &tm.state}); err != nil {
		tm.state = snapshot
		return err
	}
	return nil
}

// txMemoryView operates on the locked state without re-acquiring the lock.
type txMemoryView struct {
	state *memoryState
}

func (tv *txMemoryView) GetRecord(_ context.Context, id generic.Identity) (*generic.EmploymentRecord, error) {
	return tv.state.getRecord(id), nil
}

func (tv *txMemoryView) SaveRecord(_ context.Context, rec generic.EmploymentRecord) error {
	tv.state.records[rec.Identity] = rec
	return nil
}

func (tv *txMemoryView) ListRecords(_ context.Context) ([]generic.EmploymentRecord, error) {
	return tv.state.listRecords(), nil
}

func (tv *txMemoryView) GetCurrency(_ context.Context, id generic.Identity) (generic.Currency, bool, error) {
	c, ok := tv.state.currencies[id]
	return c, ok, nil
}

func (tv *txMemoryView) SaveCurrency(_ context.Context, id generic.Identity, c generic.Currency) error {
	tv.state.currencies[id] = c
	return nil
}

func (tv *txMemoryView) ActiveCount(_ context.Context) (int, error) {
	return tv.state.active, nil
}

func (tv *txMemoryView) AdjustActiveCount(_ context.Context, delta int) error {
	tv.state.active += delta
	return nil
}

func (tv *txMemoryView) Append(_ context.Context, tx generic.Transaction) error {
	return tv.state.append(tx)
}

func (tv *txMemoryView) Load(_ context.Context, id generic.Identity) ([]generic.Transaction, error) {
	return tv.state.load(id), nil
}

func (tv *txMemoryView) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	return tv.state.idempotency[idempotencyKey], nil
}
