// Package blob provides the object-store abstraction all domain state lives
// behind. Semantics mirror a minimal subset of S3 so the S3/MinIO adapter is
// nearly 1:1 while filesystem and memory adapters emulate them.
package blob

import (
	"context"
	"time"
)

// Driver identifies a concrete storage backend.
type Driver string

const (
	DriverMemory     Driver = "memory" // in-memory (tests)
	DriverFilesystem Driver = "fs"     // local filesystem (dev default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
)

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the storage contract. Put overwrites silently: workflow and
// collection documents are rewritten in place by design (last-write-wins,
// see the concurrency notes in DESIGN.md). Get on a missing key returns a
// fault.ErrNotFound-kinded error; backend failures surface as
// fault.ErrStoreUnavailable.
type Store interface {
	// List returns objects under prefix in ascending key order, at most max
	// entries (max <= 0 applies DefaultListMax).
	List(ctx context.Context, prefix string, max int) ([]Info, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes an object. Returns (false, nil) if it was not there.
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

const (
	// DefaultListMax bounds listings when the caller does not.
	DefaultListMax = 10000
	// HardListMax is the absolute cap on a single listing.
	HardListMax = 50000
)

// ContentTypeJSON is the content type every domain document is written with.
const ContentTypeJSON = "application/json"

// clampMax normalizes a caller-supplied listing cap.
func clampMax(max int) int {
	if max <= 0 {
		return DefaultListMax
	}
	if max > HardListMax {
		return HardListMax
	}
	return max
}
