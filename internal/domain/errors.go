// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist or is not
// visible to the caller. Ownership mismatches deliberately map here so a
// task id cannot be probed across owners.
var ErrNotFound = errors.New("not found")

// ErrUnauthenticated indicates no usable credential validated.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnknownCompany indicates the company id is absent from the loaded dataset.
var ErrUnknownCompany = errors.New("unknown company")

// ErrInvalidTransition indicates an attempt to complete a task that is
// already in a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrGenerationFailed indicates the generative-text call errored, timed out,
// or returned empty content. Eligible for retry.
var ErrGenerationFailed = errors.New("report generation failed")

// ErrNotReady indicates a report was requested before its task succeeded.
var ErrNotReady = errors.New("report not ready")

// ErrArtifactMissing indicates the report file referenced by a successful
// task no longer exists on the backing store.
var ErrArtifactMissing = errors.New("report artifact missing")
