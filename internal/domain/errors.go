package domain

import "errors"

// Failure taxonomy shared across the pipeline. Item-level errors are logged
// and skipped; store-level errors abort the run before any commit.
var (
	// ErrMalformedRecord marks a raw feed item missing a required field.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrRaterUnavailable marks transport, auth, or timeout failures of the
	// relevance rater. The item stays unscored and is retried next run.
	ErrRaterUnavailable = errors.New("rater unavailable")

	// ErrRaterMalformedResponse marks a rater reply that yields no parsable
	// score payload.
	ErrRaterMalformedResponse = errors.New("rater malformed response")

	// ErrCorruptStore marks a present-but-unparsable persisted store. Never
	// treated as empty: silently rescoring everything would re-spend the
	// rater budget.
	ErrCorruptStore = errors.New("corrupt store")

	// ErrDuplicateScore marks an attempt to overwrite a cached score.
	ErrDuplicateScore = errors.New("duplicate score")
)
