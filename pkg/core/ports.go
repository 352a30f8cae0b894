package core

import "context"

// Repository defines the contract for persisting the store snapshot.
// Adhering to this interface keeps the store independent of the
// underlying storage mechanism and file format.
type Repository interface {
	// Initialize ensures the underlying storage is ready (e.g. create directories).
	Initialize(ctx context.Context) error

	// Load returns the last saved snapshot. A repository that has never been
	// written to returns NewSnapshot() and no error.
	Load(ctx context.Context) (Snapshot, error)

	// Save overwrites the stored snapshot as a whole.
	Save(ctx context.Context, snap Snapshot) error
}

// Host is the outline-document collaborator: it reads headings out of
// source documents and maintains their identifiers.
type Host interface {
	// ExtractCardAt reads the heading that contains loc.
	// It returns ErrNotAHeading when loc is not inside any heading.
	ExtractCardAt(ctx context.Context, loc Location) (Card, error)

	// ResolveIdentifier finds the heading carrying id.
	// It returns ErrNotFound when no document holds it.
	ResolveIdentifier(ctx context.Context, id string) (Location, error)

	// GetOrCreateIdentifier returns the identifier of the heading at loc,
	// writing a new one into the document if the heading has none.
	GetOrCreateIdentifier(ctx context.Context, loc Location) (string, error)
}
