package rules

import (
	"errors"
	"fmt"
)

// Error taxonomy for the synthesis pipeline.
//
// GenerationFailure: the oracle produced nothing usable after the full
// extraction/repair cascade. Recoverable by operator retry; never retried
// automatically.
//
// PreconditionError: a request violated an invariant that is checked before
// any oracle call, so no side effects exist.
//
// CommitFailure: persistence failed during side-effect creation or the main
// update; side effects created in the same batch have been rolled back and
// the subject's stored rules are at their pre-commit value.

var (
	// ErrInvalidRule marks a rule object that fails the minimal contract.
	ErrInvalidRule = errors.New("invalid rule object")
)

// GenerationFailure reports an unusable oracle response.
type GenerationFailure struct {
	Stage  string // which pipeline stage was invoking the oracle
	Reason string
	Err    error // underlying parse/transport error, may be nil
}

func (e *GenerationFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed in %s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("generation failed in %s: %s", e.Stage, e.Reason)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// PreconditionError reports an invalid request rejected before any oracle call.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed on %s: %s", e.Field, e.Reason)
}

// CommitFailure reports a persistence failure during apply. RolledBack lists
// the side-effect documents deleted during rollback; RollbackErrs records any
// best-effort deletions that themselves failed (logged, never re-raised).
type CommitFailure struct {
	Stage        string // "side-effects" or "update"
	Err          error
	RolledBack   []string
	RollbackErrs []error
}

func (e *CommitFailure) Error() string {
	return fmt.Sprintf("commit failed during %s: %v", e.Stage, e.Err)
}

func (e *CommitFailure) Unwrap() error { return e.Err }
