package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"malharvest/pkg/errors"
	"malharvest/pkg/logger"
	"malharvest/pkg/mal"
)

// Manager lays out the output tree and performs atomic file writes
type Manager struct {
	baseDir string
	logger  logger.Logger
}

// NewManager creates a storage manager rooted at baseDir, creating it if needed
func NewManager(baseDir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorage, err, "failed to create output directory")
	}

	return &Manager{
		baseDir: baseDir,
		logger:  log,
	}, nil
}

// SeasonDir returns base/{year}/{season}
func (m *Manager) SeasonDir(year int, season mal.Season) string {
	return filepath.Join(m.baseDir, strconv.Itoa(year), season.String())
}

// EnsureSeason creates the season directory if it does not exist yet.
// Creation is logged; an existing directory is left alone silently.
func (m *Manager) EnsureSeason(year int, season mal.Season) (string, error) {
	dir := m.SeasonDir(year, season)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return dir, nil
	case err == nil:
		return "", errors.New(errors.ErrorTypeStorage, 0, fmt.Sprintf("%s exists and is not a directory", dir))
	case !os.IsNotExist(err):
		return "", errors.Wrap(errors.ErrorTypeStorage, err, "failed to stat season directory")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(errors.ErrorTypeStorage, err, "failed to create season directory")
	}
	m.logger.InfoWithFields("Created directory", map[string]interface{}{"path": dir})
	return dir, nil
}

// DetailPath returns dir/{id}.json
func DetailPath(dir string, id int64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.json", id))
}

// ImagePath returns dir/{id}_{size}.jpg. The size must pass CheckImageSize.
func ImagePath(dir string, id int64, size string) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%s.jpg", id, size))
}

// CheckImageSize rejects picture size labels that cannot name a file inside
// the season directory: empty labels, path separators, ".." and NUL bytes.
func CheckImageSize(size string) error {
	if size == "" || strings.ContainsAny(size, "/\\\x00") || strings.Contains(size, "..") {
		return errors.New(errors.ErrorTypeStorage, 0, fmt.Sprintf("invalid picture size %q", size))
	}
	return nil
}

// SaveDetails writes the re-encoded detail record to dir/{id}.json
func (m *Manager) SaveDetails(dir string, details *mal.Details, indent string) (string, error) {
	data, err := details.Indented(indent)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeParsing, err, "failed to encode details")
	}

	path := DetailPath(dir, details.ID)
	if err := m.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile atomically replaces path with data
func (m *Manager) WriteFile(path string, data []byte) error {
	_, err := m.write(path, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
	return err
}

// WriteStream atomically replaces path with the contents of r, copying
// through a buffer of bufSize bytes. It returns the number of bytes written.
func (m *Manager) WriteStream(path string, r io.Reader, bufSize int) (int64, error) {
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}
	buf := make([]byte, bufSize)
	return m.write(path, func(w io.Writer) (int64, error) {
		// Plain wrappers keep ReadFrom/WriteTo from bypassing buf
		return io.CopyBuffer(struct{ io.Writer }{w}, struct{ io.Reader }{r}, buf)
	})
}

// write fills a temporary sibling of path and renames it into place.
// On any failure the temporary file is removed and path is untouched.
func (m *Manager) write(path string, fill func(w io.Writer) (int64, error)) (int64, error) {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypeStorage, err, "failed to create temporary file")
	}
	tempName := tempFile.Name()

	n, err := fill(tempFile)
	closeErr := tempFile.Close()

	if err != nil {
		os.Remove(tempName)
		return n, errors.Wrap(errors.ErrorTypeStorage, err, "failed to write data")
	}

	if closeErr != nil {
		os.Remove(tempName)
		return n, errors.Wrap(errors.ErrorTypeStorage, closeErr, "failed to close file")
	}

	if err := os.Chmod(tempName, 0644); err != nil {
		os.Remove(tempName)
		return n, errors.Wrap(errors.ErrorTypeStorage, err, "failed to set file mode")
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return n, errors.Wrap(errors.ErrorTypeStorage, err, "failed to rename temporary file")
	}

	return n, nil
}

// BaseDir returns the output root
func (m *Manager) BaseDir() string {
	return m.baseDir
}
