package calib

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/logger"
	"gopkg.in/ini.v1"
)

// DefaultFileName is the calibration file name used in the user's home directory.
const DefaultFileName = ".robot.ini"

// FileStore keeps calibration positions in an INI file.
//
// The file is loaded on every call and rewritten atomically on every write, so other sections
// and keys in the file are preserved and concurrent readers never observe a partial file.
// Concurrent writers from several processes are not coordinated.
type FileStore struct {
	path   string
	logger logger.Logger
}

var _ Store = (*FileStore)(nil)

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger of the store.
func WithFileLogger(l logger.Logger) FileOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileStore returns a store backed by the INI file at path. The file is created on the first write.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, logger: logger.GetLogger()}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DefaultPath returns ~/.robot.ini.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("calib: locate home directory: %w", err)
	}

	return filepath.Join(home, DefaultFileName), nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Position(ctx context.Context, name string) (geometry.Position, error) {
	if err := ctx.Err(); err != nil {
		return geometry.Position{}, err
	}

	f, err := s.load()
	if errors.Is(err, fs.ErrNotExist) {
		return geometry.Position{}, missing(name)
	}
	if err != nil {
		return geometry.Position{}, err
	}

	sec := f.Section(Section)
	if !sec.HasKey(name) {
		return geometry.Position{}, missing(name)
	}

	return ParsePosition(sec.Key(name).String())
}

func (s *FileStore) SetPosition(ctx context.Context, name string, p geometry.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.load()
	if errors.Is(err, fs.ErrNotExist) {
		f = ini.Empty()
	} else if err != nil {
		return err
	}

	f.Section(Section).Key(name).SetValue(FormatPosition(p))

	if err := s.save(f); err != nil {
		return err
	}

	s.logger.Info("calibration position stored", "file", s.path, "name", name, "position", p.String())

	return nil
}

func (s *FileStore) Positions(ctx context.Context) (map[string]geometry.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.load()
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]geometry.Position{}, nil
	}
	if err != nil {
		return nil, err
	}

	keys := f.Section(Section).Keys()
	out := make(map[string]geometry.Position, len(keys))
	for _, k := range keys {
		p, err := ParsePosition(k.String())
		if err != nil {
			return nil, fmt.Errorf("calib: key %q: %w", k.Name(), err)
		}
		out[k.Name()] = p
	}

	return out, nil
}

func (s *FileStore) load() (*ini.File, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("calib: open %s: %w", s.path, err)
	}

	f, err := ini.Load(s.path)
	if err != nil {
		return nil, fmt.Errorf("calib: parse %s: %w", s.path, err)
	}

	return f, nil
}

// save writes f to a temporary file next to the target, syncs it and renames it into place.
func (s *FileStore) save(f *ini.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("calib: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("calib: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("calib: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("calib: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("calib: close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("calib: replace %s: %w", s.path, err)
	}

	return nil
}
