package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/drakos74/level-trader/internal/storage"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	timeout    = 5 * time.Second
	maxRetries = 10
)

// NewClient connects to the redis server at the given address.
func NewClient(addr, password string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at '%s': %w", addr, err)
	}
	log.Info().Str("addr", addr).Msg("connected to redis")
	return rdb, nil
}

// Shard creates stores that share the client and namespace their keys by shard.
func Shard(client *goredis.Client, prefix string) storage.Shard {
	return func(shard string) (storage.Store, error) {
		return NewStore(client, fmt.Sprintf("%s:%s", prefix, shard)), nil
	}
}

// Store keeps json values in redis.
// Update runs as an optimistic transaction on the key, retried while other writers interfere.
type Store struct {
	client    *goredis.Client
	namespace string
}

// NewStore creates a new redis backed store.
func NewStore(client *goredis.Client, namespace string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
	}
}

func (s *Store) key(k storage.Key) string {
	return fmt.Sprintf("%s:%s", s.namespace, k.Path())
}

func (s *Store) Store(k storage.Key, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(k), b, 0).Err(); err != nil {
		return fmt.Errorf("could not store '%+v': %w", k, err)
	}
	return nil
}

func (s *Store) Load(k storage.Key, value interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return decode(s.client.Get(ctx, s.key(k)), k, value)
}

func (s *Store) Update(k storage.Key, value interface{}, modify storage.Modify) error {
	original, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}
	key := s.key(k)

	attempt := 0
	operation := func() error {
		if attempt > 0 {
			// start over from the value we were given
			if err := reset(value, original); err != nil {
				return backoff.Permanent(err)
			}
		}
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
			err := decode(tx.Get(ctx, key), k, value)
			if err != nil && !storage.IsMissing(err) {
				return err
			}
			if err := modify(err == nil); err != nil {
				return err
			}
			b, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("could not marshal value: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, b, 0)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, goredis.TxFailedErr) {
			log.Debug().Str("key", key).Int("attempt", attempt).Msg("concurrent update")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	if err := backoff.Retry(operation, backoff.WithMaxRetries(policy, maxRetries)); err != nil {
		return fmt.Errorf("could not update '%+v': %w", k, err)
	}
	return nil
}

func decode(cmd *goredis.StringCmd, k storage.Key, value interface{}) error {
	b, err := cmd.Bytes()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("not found '%+v': %w", k, storage.NotFoundErr)
	}
	if err != nil {
		return fmt.Errorf("could not load '%+v': %w", k, err)
	}
	if err := json.Unmarshal(b, value); err != nil {
		return fmt.Errorf("could not unmarshal '%+v' %s: %w", k, err.Error(), storage.CouldNotLoadErr)
	}
	return nil
}

func reset(value interface{}, original []byte) error {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("value must be a non-nil pointer: %T", value)
	}
	v.Elem().Set(reflect.Zero(v.Elem().Type()))
	return json.Unmarshal(original, value)
}
