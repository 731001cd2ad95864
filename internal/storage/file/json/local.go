package json

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/drakos74/level-trader/internal/storage"
)

// LocalShard hands out a fresh in-memory store per shard.
func LocalShard() storage.Shard {
	return func(shard string) (storage.Store, error) {
		return NewLocalStorage(), nil
	}
}

// LocalStorage keeps json encoded values in memory.
type LocalStorage struct {
	files map[storage.Key]string
	mutex *sync.Mutex
}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		files: make(map[storage.Key]string),
		mutex: new(sync.Mutex),
	}
}

func (l *LocalStorage) Store(k storage.Key, value interface{}) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.store(k, value)
}

func (l *LocalStorage) Load(k storage.Key, value interface{}) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.load(k, value)
}

func (l *LocalStorage) Update(k storage.Key, value interface{}, modify storage.Modify) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	err := l.load(k, value)
	if err != nil && !storage.IsMissing(err) {
		return err
	}
	if err := modify(err == nil); err != nil {
		return err
	}
	return l.store(k, value)
}

func (l *LocalStorage) store(k storage.Key, value interface{}) error {
	bb, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}
	l.files[k] = string(bb)
	return nil
}

func (l *LocalStorage) load(k storage.Key, value interface{}) error {
	if v, ok := l.files[k]; ok {
		err := json.Unmarshal([]byte(v), value)
		if err != nil {
			return fmt.Errorf("could not unmarshal value: %s: %w", err.Error(), storage.CouldNotLoadErr)
		}
		return nil
	}
	return fmt.Errorf("file not found: %+v: %w", k, storage.NotFoundErr)
}
