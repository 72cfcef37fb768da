package credit

import "sync"

// Ledger holds the in-memory credit balance shared by every in-flight task.
// All methods are safe for concurrent use; completion of sibling tasks may
// credit the ledger in the same instant.
type Ledger struct {
	mu      sync.Mutex
	balance int
}

// NewLedger creates a ledger seeded with the given balance. Negative seeds
// are clamped to zero.
func NewLedger(balance int) *Ledger {
	if balance < 0 {
		balance = 0
	}
	return &Ledger{balance: balance}
}

// Balance returns the current balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Affordable reports whether the balance covers cost without reserving
// anything. Used as the preflight check before any submission is attempted.
func (l *Ledger) Affordable(cost int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance >= cost
}

// Reserve atomically debits cost when the balance covers it. Returns false
// with no side effect otherwise. Called only once a submission has been
// accepted, so a task that fails to submit is never charged.
func (l *Ledger) Reserve(cost int) bool {
	if cost < 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance < cost {
		return false
	}
	l.balance -= cost
	return true
}

// Credit increments the balance unconditionally. Refund idempotency is the
// caller's responsibility, tracked per task.
func (l *Ledger) Credit(cost int) {
	if cost <= 0 {
		return
	}
	l.mu.Lock()
	l.balance += cost
	l.mu.Unlock()
}
