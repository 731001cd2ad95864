package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrMockFailure is returned by the mock storage when failures are switched on.
var ErrMockFailure = errors.New("mock failure")

// MockStorage is an in-memory storage for tests, that can be set to fail.
type MockStorage struct {
	Elements  map[Key][]byte
	Writes    int
	FailStore bool
	FailLoad  bool
	lock      *sync.Mutex
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		Elements: make(map[Key][]byte),
		lock:     new(sync.Mutex),
	}
}

func (m *MockStorage) Store(k Key, value interface{}) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.store(k, value)
}

func (m *MockStorage) Load(k Key, value interface{}) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.load(k, value)
}

func (m *MockStorage) Update(k Key, value interface{}, modify Modify) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	err := m.load(k, value)
	if err != nil && !IsMissing(err) {
		return err
	}
	if err := modify(err == nil); err != nil {
		return err
	}
	return m.store(k, value)
}

func (m *MockStorage) store(k Key, value interface{}) error {
	if m.FailStore {
		return fmt.Errorf("could not store '%v': %w", k, ErrMockFailure)
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}
	m.Elements[k] = b
	m.Writes++
	return nil
}

func (m *MockStorage) load(k Key, value interface{}) error {
	if m.FailLoad {
		return fmt.Errorf("could not load '%v': %w", k, ErrMockFailure)
	}
	b, ok := m.Elements[k]
	if !ok {
		return fmt.Errorf("not found '%v': %w", k, NotFoundErr)
	}
	if err := json.Unmarshal(b, value); err != nil {
		return fmt.Errorf("could not unmarshal '%v': %w", k, CouldNotLoadErr)
	}
	return nil
}
