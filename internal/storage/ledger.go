package storage

import (
	"sync"

	"github.com/drakos74/level-trader/internal/model"
)

// Ledger is the append-only record of closed trades.
type Ledger interface {
	Append(trade model.ClosedTrade) error
	// Recent returns the last n trades, oldest first. n <= 0 returns all of them.
	Recent(n int) ([]model.ClosedTrade, error)
}

// MemoryLedger keeps the trades in memory.
type MemoryLedger struct {
	trades []model.ClosedTrade
	lock   *sync.RWMutex
}

// NewMemoryLedger creates a new in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		trades: make([]model.ClosedTrade, 0),
		lock:   new(sync.RWMutex),
	}
}

func (m *MemoryLedger) Append(trade model.ClosedTrade) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.trades = append(m.trades, trade)
	return nil
}

func (m *MemoryLedger) Recent(n int) ([]model.ClosedTrade, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return Tail(m.trades, n), nil
}

// Tail copies the last n trades.
func Tail(trades []model.ClosedTrade, n int) []model.ClosedTrade {
	from := 0
	if n > 0 && len(trades) > n {
		from = len(trades) - n
	}
	out := make([]model.ClosedTrade, len(trades)-from)
	copy(out, trades[from:])
	return out
}
