package storage

import (
	"errors"
	"fmt"
)

const (
	// LearnerDir is the storage shard for learner state.
	LearnerDir = "learner"
	// LedgerDir is the storage shard for the trade ledger.
	LedgerDir = "ledger"
)

var (
	// DefaultDir is the root directory of the file based stores.
	DefaultDir = "file-storage"
)

// Shard creates a new storage implementation for the given shard.
type Shard func(shard string) (Store, error)

var (
	NotFoundErr      = errors.New("not found")
	CouldNotLoadErr  = errors.New("could not load")
	UnrecoverableErr = errors.New("unrecoverable error")
)

// Key is the storage key for a general implementation
type Key struct {
	Hash  int64  `json:"hash"`
	Pair  string `json:"pair"`
	Label string `json:"label"`
}

func (k Key) Path() string {
	return fmt.Sprintf("%s_%v_%s", k.Pair, k.Hash, k.Label)
}

// Persistence stores and loads json-friendly values.
type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}

// Modify mutates the value loaded for a key before it is stored back.
// found reports whether there was a stored record.
type Modify func(found bool) error

// Store is a persistence that can also modify a value under exclusive access for its key.
// Update loads the current record into value, leaving it untouched if there is none,
// applies modify and stores the result. No other Update for the same key interleaves.
type Store interface {
	Persistence
	Update(k Key, value interface{}, modify Modify) error
}

// IsMissing returns true for errors that mean there is nothing stored yet.
func IsMissing(err error) bool {
	return errors.Is(err, NotFoundErr)
}
