package credentialstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/halo-stats/internal/domain/credential"
)

// FileStore keeps the bundle in a single JSON file. Writes go to a temp
// file in the same directory and are renamed over the target.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (credential.Bundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return credential.Bundle{}, false, nil
	}
	if err != nil {
		return credential.Bundle{}, false, fmt.Errorf("read credential file: %w", err)
	}

	var bundle credential.Bundle
	if err := sonic.Unmarshal(raw, &bundle); err != nil {
		return credential.Bundle{}, false, fmt.Errorf("decode credential file %s: %w", s.path, err)
	}
	return bundle, true, nil
}

func (s *FileStore) Save(_ context.Context, bundle credential.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := sonic.ConfigStd.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential bundle: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp credential file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
