package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the only accepted archive suffix for model and tokenizer uploads.
const Extension = ".zip"

// ErrWrongExtension is returned when a file name does not end in Extension.
var ErrWrongExtension = errors.New("archive: wrong extension")

// File is a staged archive. It can be opened any number of times so a failed
// submission can be retried with the same attachment.
type File struct {
	Name string
	Size int64
	open func() (io.ReadCloser, error)
}

// HasExtension reports whether name ends in the archive extension. The match
// is exact: "model.ZIP" and "model.zip " do not qualify.
func HasExtension(name string) bool {
	return strings.HasSuffix(name, Extension)
}

// FromPath stats path and returns a handle that reopens it on demand.
func FromPath(path string) (File, error) {
	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FromBytes wraps in-memory content.
func FromBytes(name string, data []byte) File {
	buf := append([]byte(nil), data...)
	return File{
		Name: name,
		Size: int64(len(buf)),
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(buf)), nil },
	}
}

// IsZero reports whether no file is attached.
func (f File) IsZero() bool {
	return f.open == nil && f.Name == ""
}

// Open returns a fresh reader over the archive content.
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("archive %q has no content", f.Name)
	}
	return f.open()
}

// Validate returns ErrWrongExtension unless the name carries the archive suffix.
func (f File) Validate() error {
	if !HasExtension(f.Name) {
		return fmt.Errorf("%s: %w", f.Name, ErrWrongExtension)
	}
	return nil
}
