package diagnostic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes each dump to its own file below dir.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Write(_ context.Context, dump Dump) error {
	path := filepath.Join(s.dir, filepath.FromSlash(objectName(dump)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	if err := os.WriteFile(path, dump.Payload, 0o644); err != nil {
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	return nil
}
