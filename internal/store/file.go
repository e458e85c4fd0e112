package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/noah-isme/my-mailer/internal/submission"
)

const (
	recordExt      = ".json"
	pendingPattern = ".pending-*.tmp"
)

// FileStore writes each submission to <dir>/<id>.json. Records are written to
// a hidden temporary file first and published with an exclusive hard link, so
// a visible record is always complete and two writers can never share a name.
type FileStore struct {
	dir string
}

// NewFileStore creates dir when missing and verifies it is writable.
func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, storageErr("init", errors.New("directory is required"))
	}
	s := &FileStore{dir: dir}
	if err := s.Ping(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenFileStore opens an existing record directory for reading. Unlike
// NewFileStore it never creates or writes to dir.
func OpenFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, storageErr("open", errors.New("directory is required"))
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, storageErr("open", err)
	}
	if !info.IsDir() {
		return nil, storageErr("open", fmt.Errorf("%s is not a directory", dir))
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory records are written to.
func (s *FileStore) Dir() string { return s.dir }

// Ping creates the directory if needed and probes it with a throwaway file.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storageErr("ping", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return storageErr("create directory", err)
	}
	probe, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return storageErr("probe", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, sub submission.Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storageErr("save", err)
	}
	data, err := encodeRecord(sub.Record())
	if err != nil {
		return "", storageErr("encode", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", storageErr("create directory", err)
	}

	tmp, err := os.CreateTemp(s.dir, pendingPattern)
	if err != nil {
		return "", storageErr("create temp", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", storageErr("write", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return "", storageErr("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", storageErr("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return "", storageErr("close", err)
	}

	base := sub.ID()
	id := base
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		err := os.Link(tmpName, s.path(id))
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", storageErr("publish", err)
		}
		id = suffixedID(base)
	}
	return "", storageErr("publish", fmt.Errorf("no free record name for %s", base))
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, id string) (submission.Record, error) {
	if err := ctx.Err(); err != nil {
		return submission.Record{}, storageErr("load", err)
	}
	if !validID(id) {
		return submission.Record{}, ErrNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return submission.Record{}, ErrNotFound
		}
		return submission.Record{}, storageErr("read", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return submission.Record{}, storageErr("decode", err)
	}
	return rec, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}
