package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactFetcher streams a model artifact identified by its ledger block id.
type ArtifactFetcher interface {
	FetchArtifact(ctx context.Context, nftID string, w io.Writer) (string, int64, error)
}

// SaveArtifact downloads nftID into dir under the server-suggested file name
// and returns the written path. Nothing is left behind on failure.
func SaveArtifact(ctx context.Context, f ArtifactFetcher, nftID, dir string) (string, int64, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".modelhub-fetch-*")
	if err != nil {
		return "", 0, fmt.Errorf("create download file: %w", err)
	}
	name, n, err := f.FetchArtifact(ctx, nftID, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("write %s: %w", tmp.Name(), cerr)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, err
	}
	dest, err := reserve(dir, filepath.Base(name))
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		_ = os.Remove(dest)
		return "", 0, fmt.Errorf("save %s: %w", dest, err)
	}
	return dest, n, nil
}

const maxNameAttempts = 1000

// reserve claims a file name in dir that nothing else uses, adding a -N
// suffix before the extension when name is taken. Existing files are never
// replaced.
func reserve(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserve %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("reserve %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}
