package config

import (
	"fmt"
	"path/filepath"

	"github.com/drakos74/level-trader/internal/storage"
	"github.com/drakos74/level-trader/internal/storage/file/json"
	"github.com/drakos74/level-trader/internal/storage/redis"
	"github.com/drakos74/level-trader/internal/storage/sql"
	"github.com/rs/zerolog/log"
)

// Shard creates the storage shards of the configured kind.
// An unreachable redis falls back to in-memory stores, so the learners start from their defaults.
func (c Config) Shard() (storage.Shard, error) {
	switch c.Store {
	case FileStore:
		return json.FileShard(c.DataDir), nil
	case LocalStore:
		return json.LocalShard(), nil
	case VoidStore:
		return storage.VoidShard(), nil
	case RedisStore:
		client, err := redis.NewClient(c.Redis.Addr, c.Redis.Password)
		if err != nil {
			log.Warn().Err(err).Str("addr", c.Redis.Addr).Msg("redis unavailable, using local storage")
			return json.LocalShard(), nil
		}
		return redis.Shard(client, c.Redis.Namespace), nil
	}
	return nil, fmt.Errorf("unknown store '%s'", c.Store)
}

// NewLedger creates the trade ledger of the configured kind.
func (c Config) NewLedger() (storage.Ledger, error) {
	switch c.Ledger {
	case FileLedger:
		return json.NewLedger(filepath.Join(c.DataDir, storage.LedgerDir)), nil
	case MemoryLedger:
		return storage.NewMemoryLedger(), nil
	case SQLLedger:
		db, err := sql.Open(c.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sql.NewLedger(db, c.Trader.Pair), nil
	}
	return nil, fmt.Errorf("unknown ledger '%s'", c.Ledger)
}
