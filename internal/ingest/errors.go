package ingest

import "errors"

// Failure signals surfaced to the driver. Each is row-scoped: the batch
// continues past any of them.
var (
	// ErrDocumentUnavailable means every identifier variant and every
	// fetch strategy was exhausted without producing a document.
	ErrDocumentUnavailable = errors.New("document unavailable")

	// ErrExtractionFailed means the document was fetched but parsing
	// raised instead of degrading to an empty record set.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrStoreFailed means the per-zone transaction did not commit.
	ErrStoreFailed = errors.New("store transaction failed")
)
