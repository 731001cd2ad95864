package json

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/drakos74/level-trader/internal/storage"
)

// files guards every file path handed out by file stores of this process.
var files = &pathLocks{locks: make(map[string]*sync.Mutex)}

type pathLocks struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pathLocks) get(path string) *sync.Mutex {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	l, ok := p.locks[path]
	if !ok {
		l = new(sync.Mutex)
		p.locks[path] = l
	}
	return l
}

// FileShard creates json file stores under the given root directory.
func FileShard(root string) storage.Shard {
	return func(shard string) (storage.Store, error) {
		return NewFileStore(filepath.Join(root, shard)), nil
	}
}

// FileStore keeps one json document per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a new file store for the given directory.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) fileName(k storage.Key) string {
	return fmt.Sprintf("%s.json", k.Path())
}

func (f *FileStore) lock(k storage.Key) *sync.Mutex {
	return files.get(filepath.Join(f.dir, f.fileName(k)))
}

func (f *FileStore) Store(k storage.Key, value interface{}) error {
	l := f.lock(k)
	l.Lock()
	defer l.Unlock()
	return Save(f.dir, f.fileName(k), value)
}

func (f *FileStore) Load(k storage.Key, value interface{}) error {
	l := f.lock(k)
	l.Lock()
	defer l.Unlock()
	return Load(f.dir, f.fileName(k), value)
}

func (f *FileStore) Update(k storage.Key, value interface{}, modify storage.Modify) error {
	l := f.lock(k)
	l.Lock()
	defer l.Unlock()
	err := Load(f.dir, f.fileName(k), value)
	if err != nil && !storage.IsMissing(err) {
		return fmt.Errorf("could not load '%+v' for update: %w", k, err)
	}
	if err := modify(err == nil); err != nil {
		return fmt.Errorf("could not modify '%+v': %w", k, err)
	}
	return Save(f.dir, f.fileName(k), value)
}
