package kvstore

import "errors"

// Sentinel errors shared by the model, storage and cache layers. HTTP status
// mapping lives at the edge (internal/httpapi), never here.
var (
	// ErrRecordMissing is returned when a uid is required to exist but does not.
	ErrRecordMissing = errors.New("record is missing")

	// ErrRecordExists is returned when a uid must not exist yet but does, or
	// when an update carries no actual change in value.
	ErrRecordExists = errors.New("record exists")

	// ErrServerMissing is returned at configuration time when a cache is
	// enabled without any peer configured to bounce to.
	ErrServerMissing = errors.New("server is missing")
)
