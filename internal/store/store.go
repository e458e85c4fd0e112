// Package store persists accepted submissions as one self-describing JSON
// record each, either on the local filesystem or in an S3-compatible bucket.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/my-mailer/internal/config"
	"github.com/noah-isme/my-mailer/internal/submission"
)

// maxNameAttempts bounds how many suffixed names are tried after the
// timestamp-derived one is already taken.
const maxNameAttempts = 4

// ErrNotFound is returned by Load when no record exists for the identifier.
var ErrNotFound = errors.New("store: record not found")

// Store durably records submissions.
type Store interface {
	// Save persists the submission and returns the identifier of the new record.
	Save(ctx context.Context, sub submission.Submission) (string, error)
	// Load reads a previously saved record.
	Load(ctx context.Context, id string) (submission.Record, error)
	// Ping verifies the storage location is reachable and writable.
	Ping(ctx context.Context) error
}

// StorageError reports a failed storage operation.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.StorageS3:
		s, err := NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageFile, "":
		s, err := NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, storageErr("init", fmt.Errorf("unsupported backend %q", cfg.Backend))
	}
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func encodeRecord(rec submission.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (submission.Record, error) {
	var rec submission.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return submission.Record{}, err
	}
	return rec, nil
}

// suffixedID appends a short random component to a taken identifier.
func suffixedID(base string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return base + "_" + token[:8]
}

// validID rejects identifiers that could escape the storage location.
func validID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
