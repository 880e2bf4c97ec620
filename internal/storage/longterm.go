package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._@-]`)

// FileStore keeps one JSON document per user under baseDir. Writes go to a
// temp file that is renamed over the record, and a per-user lock serializes
// merges inside the process.
type FileStore struct {
	baseDir string
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

func (f *FileStore) path(userID string) string {
	return filepath.Join(f.baseDir, unsafeFileChars.ReplaceAllString(userID, "_")+".json")
}

func (f *FileStore) userLock(userID string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		f.locks[userID] = l
	}
	return l
}

func (f *FileStore) load(userID string) (*Record, error) {
	data, err := os.ReadFile(f.path(userID))
	if errors.Is(err, os.ErrNotExist) {
		return NewRecord(userID, f.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory file: %w", err)
	}

	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse memory file: %w", err)
	}
	return normalize(&rec, userID, f.now()), nil
}

func (f *FileStore) Get(_ context.Context, userID string) (*Record, error) {
	l := f.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return f.load(userID)
}

func (f *FileStore) Merge(_ context.Context, userID string, patch Patch) (*Record, error) {
	l := f.userLock(userID)
	l.Lock()
	defer l.Unlock()

	rec, err := f.load(userID)
	if err != nil {
		return nil, err
	}
	rec.Apply(patch, f.now())

	data, err := sonic.ConfigStd.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal memory record: %w", err)
	}

	tmp, err := os.CreateTemp(f.baseDir, ".record-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write memory file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to chmod memory file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(userID)); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to replace memory file: %w", err)
	}
	return rec, nil
}

func (f *FileStore) Close() error {
	return nil
}
