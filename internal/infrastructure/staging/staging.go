// Package staging keeps private copies of the external files picked for an
// import and prunes old copies after each run.
package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// filePrefix marks files created by the store, nothing else in the directory is pruned
const filePrefix = "src_"

// Store copies source files into a staging directory
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a staging store rooted at dir
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger.Named("staging"), now: time.Now}
}

// Dir returns the staging directory
func (s *Store) Dir() string {
	return s.dir
}

// Stage copies path into the staging directory under a unique name that sorts
// by staging time, keeping the original extension
func (s *Store) Stage(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", shared.ErrCanceled
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", stageError("create staging dir", s.dir, err)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", stageError("open", path, err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s%020d_%s%s", filePrefix, s.now().UnixNano(), uuid.NewString(),
		strings.ToLower(filepath.Ext(path)))
	dest := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", stageError("create", dest, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dest)
		return "", stageError("copy", path, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dest)
		return "", stageError("copy", path, err)
	}

	s.logger.Debug("Source staged", zap.String("source", path), zap.String("staged", dest))
	return dest, nil
}

// Staged lists the staged copies, oldest first
func (s *Store) Staged() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, stageError("list", s.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Prune removes all but the newest keep staged copies and returns how many were removed.
// Files that cannot be removed are skipped.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	staged, err := s.Staged()
	if err != nil {
		return 0, err
	}
	if len(staged) <= keep {
		return 0, nil
	}

	removed := 0
	for _, path := range staged[:len(staged)-keep] {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove staged source", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// stageError wraps a file system failure so it matches shared.ErrIO
func stageError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Err: err}
}

// Error is a staging file system failure
type Error struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("staging: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying failure
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes Error match shared.ErrIO
func (e *Error) Is(target error) bool {
	return target == shared.ErrIO
}
