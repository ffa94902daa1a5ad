package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// FileStore persists State as YAML. Reads and writes hold an advisory lock on
// "<path>.lock" so concurrent CLI invocations do not interleave.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a FileStore for path. Nothing touches the disk until Load or Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the session file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the persisted state. A missing file yields the zero State.
func (f *FileStore) Load() (State, error) {
	if err := f.ensureDir(); err != nil {
		return State{}, err
	}
	if err := f.lock.RLock(); err != nil {
		return State{}, fmt.Errorf("lock session file: %w", err)
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read session file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode session file %s: %w", f.path, err)
	}
	return st, nil
}

// Save writes state atomically (temp file + rename) with 0600 permissions.
func (f *FileStore) Save(st State) error {
	if err := f.ensureDir(); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer f.lock.Unlock()

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Bind persists every change made to store. Save errors go to onErr, which may be nil.
// The returned func stops persisting.
func (f *FileStore) Bind(store *Store, onErr func(error)) func() {
	return store.Subscribe(func(st State) {
		if err := f.Save(st); err != nil && onErr != nil {
			onErr(err)
		}
	})
}

func (f *FileStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return nil
}
