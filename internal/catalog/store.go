package catalog

import "context"

// Store persists the catalog mirror. Implementations serialize all writes:
// concurrent refreshes and webhook events must never interleave on the
// underlying artifact.
type Store interface {
	Ping(ctx context.Context) error

	// Load returns the current snapshot. ok is false when none has been
	// written yet.
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)

	// Replace overwrites the snapshot and category list wholesale and
	// rewrites the derived metadata.
	Replace(ctx context.Context, items []Item, categories []Category) error

	// Update applies fn to the current snapshot (a zero snapshot when none
	// exists) under the store's write lock, then persists the result,
	// stamps LastWebhookUpdate, and rewrites the derived metadata. fn
	// returning an error abandons the write.
	Update(ctx context.Context, fn func(*Snapshot) error) (Snapshot, error)

	LoadCategories(ctx context.Context) (CategoryList, bool, error)
	LoadMetadata(ctx context.Context) (Metadata, bool, error)
}
