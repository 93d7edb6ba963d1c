// Package store defines the Record Store: the only shared mutable resource
// between room participants. Records are JSON objects addressed by string
// keys; chat history lives in append-only lists.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
)

var (
	ErrNotFound      = fmt.Errorf("record %w", domain.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("record already exists: %w", domain.ErrConflict)
	ErrUnavailable   = domain.ErrStoreUnavailable
	ErrMalformed     = fmt.Errorf("malformed record: %w", domain.ErrStoreUnavailable)
)

// RevisionField is maintained by MergeIfNewer and must not be written by callers.
const RevisionField = "revision"

// Document is a JSON object split into its top-level fields.
type Document map[string]json.RawMessage

type Store interface {
	Get(ctx context.Context, key string) (Document, error)
	// Set replaces the whole document.
	Set(ctx context.Context, key string, doc Document) error
	// Create stores doc only if key is absent, otherwise ErrAlreadyExists.
	Create(ctx context.Context, key string, doc Document) error
	// Merge overwrites the given top-level fields and leaves the others intact.
	Merge(ctx context.Context, key string, doc Document) error
	// MergeIfNewer merges doc only when the stored orderField is absent or not
	// greater than order. Accepted writes bump RevisionField; the current
	// revision is returned either way.
	MergeIfNewer(ctx context.Context, key, orderField string, order int64, doc Document) (int64, bool, error)
	DeleteFields(ctx context.Context, key string, fields ...string) error
	Delete(ctx context.Context, key string) error
	ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
	// Append pushes value to the list at key keeping at most limit newest
	// entries (limit <= 0 means unbounded) and returns the resulting length.
	Append(ctx context.Context, key string, value json.RawMessage, limit int) (int, error)
	Range(ctx context.Context, key string) ([]json.RawMessage, error)
}

func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Encode turns a struct into a Document, one entry per JSON field.
func Encode(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}

	return doc, nil
}

func Decode(doc Document, v any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return nil
}

// Field builds a single-field Document.
func Field(name string, value any) (Document, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal field %s: %w", name, err)
	}

	return Document{name: raw}, nil
}

// Pick returns a Document with only the named fields of doc.
func (d Document) Pick(fields ...string) Document {
	out := make(Document, len(fields))
	for _, f := range fields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}

	return out
}

func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}

	return out
}
