package json

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/rs/zerolog/log"
)

const logFile = "trades.events.log"

// Ledger appends closed trades as json lines to a log file.
type Ledger struct {
	dir  string
	lock *sync.Mutex
}

// NewLedger creates a trade log in the given directory.
func NewLedger(dir string) *Ledger {
	return &Ledger{
		dir:  dir,
		lock: files.get(filepath.Join(dir, logFile)),
	}
}

func (l *Ledger) path() string {
	return filepath.Join(l.dir, logFile)
}

func (l *Ledger) Append(trade model.ClosedTrade) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := ensureDir(l.dir); err != nil {
		return err
	}

	b, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("could not encode trade '%s': %w", trade.TradeID, err)
	}
	f, err := os.OpenFile(l.path(), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	defer f.Close()

	if _, err = f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("could not write log file for '%s': %w", trade.TradeID, err)
	}
	return nil
}

func (l *Ledger) Recent(n int) ([]model.ClosedTrade, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	f, err := os.Open(l.path())
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ClosedTrade{}, nil
		}
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	defer f.Close()

	trades := make([]model.ClosedTrade, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var trade model.ClosedTrade
		if err := json.Unmarshal(scanner.Bytes(), &trade); err != nil {
			log.Warn().Err(err).Int("line", line).Str("file", l.path()).Msg("skipping malformed trade")
			continue
		}
		trades = append(trades, trade)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read log file: %w", err)
	}
	return storage.Tail(trades, n), nil
}
