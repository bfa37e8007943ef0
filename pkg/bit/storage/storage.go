// Package storage is the file-system collaborator used by the repository and
// the index codec. A Device is backed by afero, either by the real disk or
// by memory.
package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jamesainslie/bit/pkg/bit/logging"
)

// Mode selects how Open treats an existing or missing file.
type Mode int

const (
	// ModeRead opens an existing file for reading.
	ModeRead Mode = iota
	// ModeOpen opens an existing file for reading and writing.
	ModeOpen
	// ModeCreate creates the file, truncating it if it exists.
	ModeCreate
	// ModeOpenOrCreate opens the file, creating it if missing.
	ModeOpenOrCreate
	// ModeAppend opens the file for appending, creating it if missing.
	ModeAppend
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeOpen:
		return "open"
	case ModeCreate:
		return "create"
	case ModeOpenOrCreate:
		return "open-or-create"
	case ModeAppend:
		return "append"
	default:
		return "unknown"
	}
}

func (m Mode) flags() (int, error) {
	switch m {
	case ModeRead:
		return os.O_RDONLY, nil
	case ModeOpen:
		return os.O_RDWR, nil
	case ModeCreate:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case ModeOpenOrCreate:
		return os.O_RDWR | os.O_CREATE, nil
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, fmt.Errorf("unknown open mode %d", m)
	}
}

// File is an open stream returned by Device.Open.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// Device abstracts the folder and file operations bit performs.
type Device interface {
	CreateFolder(path string, hidden bool) error
	DeleteFolder(path string) error
	ReadAllBytes(path string) ([]byte, error)
	WriteAllBytes(path string, data []byte) error
	ReadAllText(path string) (string, error)
	WriteAllText(path, text string) error
	Open(path string, mode Mode) (File, error)
	Exists(path string) (bool, error)
	IsDir(path string) (bool, error)
	Rename(oldPath, newPath string) error
	Remove(path string) error
}

const (
	folderPerm = 0o755
	filePerm   = 0o644
)

// FileSystem is a Device on top of an afero file system. Relative paths are
// resolved against the working directory.
type FileSystem struct {
	fs   afero.Fs
	hide func(path string) error
}

var _ Device = (*FileSystem)(nil)

// NewOS returns a device backed by the real disk.
func NewOS() *FileSystem {
	return &FileSystem{fs: afero.NewOsFs(), hide: hide}
}

// NewMemory returns a device backed by memory.
func NewMemory() *FileSystem {
	return New(afero.NewMemMapFs())
}

// New returns a device backed by fsys. Hidden folders get no extra
// attributes beyond their name.
func New(fsys afero.Fs) *FileSystem {
	return &FileSystem{fs: fsys}
}

// Fs returns the underlying afero file system.
func (d *FileSystem) Fs() afero.Fs {
	return d.fs
}

// CreateFolder creates path and any missing parents. On Windows a hidden
// folder also gets the hidden attribute.
func (d *FileSystem) CreateFolder(path string, hidden bool) error {
	path, err := rooted(path)
	if err != nil {
		return err
	}

	if err := d.fs.MkdirAll(path, folderPerm); err != nil {
		return fmt.Errorf("creating folder %s: %w", path, err)
	}
	logging.Get("storage").Trace("created directory", "path", path, "hidden", hidden)

	if hidden && d.hide != nil {
		if err := d.hide(path); err != nil {
			return fmt.Errorf("hiding folder %s: %w", path, err)
		}
	}
	return nil
}

// DeleteFolder removes path and everything below it. A missing folder is an
// error.
func (d *FileSystem) DeleteFolder(path string) error {
	path, err := rooted(path)
	if err != nil {
		return err
	}

	info, err := d.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("deleting folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("deleting folder %s: not a directory", path)
	}

	if err := d.fs.RemoveAll(path); err != nil {
		return fmt.Errorf("deleting folder %s: %w", path, err)
	}
	logging.Get("storage").Trace("deleted folder", "path", path)
	return nil
}

// ReadAllBytes returns the contents of path.
func (d *FileSystem) ReadAllBytes(path string) ([]byte, error) {
	path, err := rooted(path)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(d.fs, path)
}

// WriteAllBytes replaces the contents of path, creating the file if needed.
func (d *FileSystem) WriteAllBytes(path string, data []byte) error {
	path, err := rooted(path)
	if err != nil {
		return err
	}

	existed, err := afero.Exists(d.fs, path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := afero.WriteFile(d.fs, path, data, filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if !existed {
		logging.Get("storage").Trace("created file", "path", path)
	}
	return nil
}

// ReadAllText returns the contents of path as UTF-8 text.
func (d *FileSystem) ReadAllText(path string) (string, error) {
	data, err := d.ReadAllBytes(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteAllText replaces the contents of path with text encoded as UTF-8.
func (d *FileSystem) WriteAllText(path, text string) error {
	return d.WriteAllBytes(path, []byte(text))
}

// Open opens path according to mode. The caller closes the returned file.
func (d *FileSystem) Open(path string, mode Mode) (File, error) {
	path, err := rooted(path)
	if err != nil {
		return nil, err
	}

	flags, err := mode.flags()
	if err != nil {
		return nil, err
	}

	f, err := d.fs.OpenFile(path, flags, filePerm)
	if err != nil {
		return nil, err
	}
	if mode == ModeCreate {
		logging.Get("storage").Trace("created file", "path", path)
	}
	return f, nil
}

// Exists reports whether path exists.
func (d *FileSystem) Exists(path string) (bool, error) {
	path, err := rooted(path)
	if err != nil {
		return false, err
	}
	_, err = d.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether path exists and is a directory.
func (d *FileSystem) IsDir(path string) (bool, error) {
	path, err := rooted(path)
	if err != nil {
		return false, err
	}
	info, err := d.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Rename moves oldPath to newPath, replacing an existing file at newPath.
func (d *FileSystem) Rename(oldPath, newPath string) error {
	oldPath, err := rooted(oldPath)
	if err != nil {
		return err
	}
	newPath, err = rooted(newPath)
	if err != nil {
		return err
	}
	if err := d.fs.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("renaming %s: %w", oldPath, err)
	}
	logging.Get("storage").Trace("renamed", "from", oldPath, "to", newPath)
	return nil
}

// Remove deletes the file at path.
func (d *FileSystem) Remove(path string) error {
	path, err := rooted(path)
	if err != nil {
		return err
	}
	if err := d.fs.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func rooted(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &fs.PathError{Op: "resolve", Path: path, Err: err}
	}
	return abs, nil
}
