package blob

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/stratabase/borecore/internal/fault"
)

// Filesystem is a Store backed by a local directory, for development. Keys
// map to relative file paths under the root; writes go through a temp file
// and rename so readers never observe a torn document.
type Filesystem struct {
	root string
}

// NewFilesystem returns a filesystem store rooted at root, creating the
// directory if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrapf(err, "blob: create fs root %s", root)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) Driver() Driver { return DriverFilesystem }

// fsTempPrefix marks in-flight Put temp files awaiting rename. They live in
// the destination directory, so listings must never surface them.
const fsTempPrefix = ".put-"

// sanitizeKey rejects keys that would escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", eris.New("blob: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", eris.Errorf("blob: invalid key %q", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (f *Filesystem) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(k)), nil
}

func (f *Filesystem) List(_ context.Context, prefix string, max int) ([]Info, error) {
	max = clampMax(max)
	var out []Info
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), fsTempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Info{
			Key:          key,
			Size:         fi.Size(),
			ContentType:  mime.TypeByExtension(filepath.Ext(key)),
			LastModified: fi.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fault.StoreUnavailable(err, "blob: walk fs root")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (f *Filesystem) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.pathFor(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fault.NotFound("blob %s", key)
	}
	if err != nil {
		return nil, fault.StoreUnavailable(err, "blob: read "+key)
	}
	return b, nil
}

func (f *Filesystem) Put(_ context.Context, key string, body []byte, _ string) error {
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fault.StoreUnavailable(err, "blob: mkdir for "+key)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), fsTempPrefix+"*")
	if err != nil {
		return fault.StoreUnavailable(err, "blob: temp file for "+key)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fault.StoreUnavailable(err, "blob: write "+key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fault.StoreUnavailable(err, "blob: close "+key)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fault.StoreUnavailable(err, "blob: rename "+key)
	}
	return nil
}

func (f *Filesystem) Exists(_ context.Context, key string) (bool, error) {
	path, err := f.pathFor(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fault.StoreUnavailable(err, "blob: stat "+key)
	}
	return true, nil
}

func (f *Filesystem) Delete(_ context.Context, key string) (bool, error) {
	path, err := f.pathFor(key)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fault.StoreUnavailable(err, "blob: remove "+key)
	}
	return true, nil
}
