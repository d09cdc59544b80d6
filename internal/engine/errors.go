package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the front end. Each is scoped to one project's
// operation; none corrupts another project's state.
var (
	// ErrDeploymentInProgress rejects a second promote/rollback for a project
	// while one is in flight. A rejection, not a failure: the caller retries
	// later.
	ErrDeploymentInProgress = errors.New("deployment already in progress")

	// ErrChecksumMismatch means the uploaded tree does not match the local
	// tree. Fatal for the deploy attempt; the upload is left in place for
	// inspection and never promoted.
	ErrChecksumMismatch = errors.New("content checksum mismatch")

	// ErrNoSuchVersion means the requested rollback target does not exist or
	// never completed.
	ErrNoSuchVersion = errors.New("no such version")

	// ErrNoActiveVersion means the project has never successfully deployed.
	ErrNoActiveVersion = errors.New("no active version")
)

// PartialPromoteError reports a promote aborted partway through the current/
// copy. Already-copied objects are left in place and the previous live tree
// remains logically authoritative; the caller decides whether to re-run the
// promote or investigate.
type PartialPromoteError struct {
	Project   string
	VersionID string
	Copied    int
	Err       error
}

func (e *PartialPromoteError) Error() string {
	return fmt.Sprintf("promote of %s/%s aborted after %d objects: %v",
		e.Project, e.VersionID, e.Copied, e.Err)
}

func (e *PartialPromoteError) Unwrap() error {
	return e.Err
}
