package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"slidemill/internal/fileutil"
	"slidemill/internal/logging"
)

// FileName is the metadata document stored in the project base folder.
const FileName = "metadata.json"

const lockFileName = ".metadata.lock"

// Store reads and writes the metadata document of one project folder.
type Store struct {
	baseDir string
	path    string
	probe   DimensionProbe
	logger  *slog.Logger
	lock    *flock.Flock
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithProbe replaces the image dimension probe.
func WithProbe(probe DimensionProbe) StoreOption {
	return func(s *Store) {
		if probe != nil {
			s.probe = probe
		}
	}
}

// NewStore returns a store for the project rooted at baseDir.
func NewStore(baseDir string, logger *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		baseDir: baseDir,
		path:    filepath.Join(baseDir, FileName),
		probe:   ProbeDimensions,
		logger:  logging.NewComponentLogger(logger, "metadata_store"),
		lock:    flock.New(filepath.Join(baseDir, lockFileName)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseDir returns the project folder.
func (s *Store) BaseDir() string { return s.baseDir }

// Path returns the metadata file location.
func (s *Store) Path() string { return s.path }

// Probe returns the dimension probe used by the store.
func (s *Store) Probe() DimensionProbe { return s.probe }

// Exists reports whether the metadata file is present.
func (s *Store) Exists() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat metadata: %w", err)
	}
	return !info.IsDir(), nil
}

// Load reads the metadata file. A document whose top-level keys are out of
// order fails with ErrKeyOrder and nothing else is checked.
func (s *Store) Load() (*Metadata, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	md, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("metadata loaded",
		logging.String("path", s.path),
		logging.Int("content_types", len(md.ContentTypes)),
		logging.Int("images", len(md.Images)),
		logging.Int("untagged", len(md.Untagged)))
	return md, nil
}

// LoadOrGenerate loads the metadata file, generating and saving it from the
// filesystem and catalog when it does not exist yet. generated reports which
// path was taken.
func (s *Store) LoadOrGenerate(cat Catalog) (md *Metadata, generated bool, err error) {
	exists, err := s.Exists()
	if err != nil {
		return nil, false, err
	}
	if exists {
		md, err = s.Load()
		return md, false, err
	}
	md, err = s.Generate(cat)
	if err != nil {
		return nil, false, err
	}
	return md, true, nil
}

// Save rewrites the whole metadata file.
func (s *Store) Save(md *Metadata) error {
	if md == nil {
		return errors.New("save metadata: nil document")
	}
	md.ensureSections()
	data, err := json.MarshalIndent(md, "", "    ")
	if err != nil {
		return fmt.Errorf("metadata is not serializable: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persist metadata: %w", err)
	}
	s.logger.Debug("metadata saved", logging.String("path", s.path), logging.Int("bytes", len(data)))
	return nil
}

// Lock takes the project's advisory writer lock without blocking.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire metadata lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrLocked, s.lock.Path())
	}
	return nil
}

// Unlock releases the writer lock.
func (s *Store) Unlock() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("release metadata lock: %w", err)
	}
	return nil
}

// contentDir resolves a structure path against the project folder.
func (s *Store) contentDir(path string) string {
	return resolveDir(s.baseDir, path)
}

func resolveDir(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ImagePath returns the on-disk location of a recorded image.
func (m *Metadata) ImagePath(baseDir, name string) (string, bool) {
	img, ok := m.Images[name]
	if !ok || img == nil {
		return "", false
	}
	st, ok := m.Structure[img.ContentType]
	if !ok {
		return "", false
	}
	return filepath.Join(resolveDir(baseDir, st.Path), name), true
}
