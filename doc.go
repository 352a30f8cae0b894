// Package workbench is the composition root for org-workbench.
//
// It connects the card store (pkg/core) with the snapshot repository
// (pkg/adapters/fs) and the outline document host (pkg/adapters/outline)
// using the hexagonal layout: the core only knows the ports it consumes.
//
// A workbench is a named, ordered collection of cards. A card is a snapshot
// of a heading taken from an Org-mode or Markdown document. Cards keep their
// identity through a stable key, so they can be reordered, removed and
// re-synced from their source heading without touching the document.
//
// Usage:
//
//	svc, err := workbench.New(workbench.SnapshotPath(root),
//		workbench.WithRoot(root),
//		workbench.WithLogger(logger),
//	)
//
//	// Collect the heading at line 12, giving it an identifier if needed.
//	card, added, err := svc.AddFromHost(ctx, svc.Current(),
//		core.Location{File: "notes.org", Line: 12}, true)
//
//	// Later, refresh every card from its source.
//	report, err := svc.SyncAll(ctx, svc.Current())
package workbench
