package xcorrsound

import (
	"errors"
	"fmt"

	"github.com/hupe1980/xcorrsound/blobstore"
	"github.com/hupe1980/xcorrsound/fingerprint"
	"github.com/hupe1980/xcorrsound/internal/collapse"
	"github.com/hupe1980/xcorrsound/internal/posting"
	"github.com/hupe1980/xcorrsound/internal/score"
)

var (
	// ErrInvalidArgument is returned for invalid offsets, ranges and sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a recording or its fingerprints are missing.
	ErrNotFound = errors.New("not found")

	// ErrGenerationFailure is returned when fingerprint extraction failed upstream.
	// Failed generations are not retried.
	ErrGenerationFailure = errors.New("fingerprint generation failed")

	// ErrDuplicateRecording is returned when a recording ID is added twice
	// under the RejectDuplicates policy.
	ErrDuplicateRecording = errors.New("duplicate recording")

	// ErrUnknownStrategy is returned for unknown collapse strategy names.
	ErrUnknownStrategy = errors.New("unknown collapse strategy")

	// ErrClosed is returned when an Archive is used after Close.
	ErrClosed = errors.New("archive closed")

	// ErrShardTimeout is reported for shards that did not finish before the
	// archive search deadline.
	ErrShardTimeout = errors.New("shard timed out")

	// ErrCorrupt is returned when a saved index, manifest or sidecar cannot be decoded.
	ErrCorrupt = errors.New("corrupt data")
)

// RangeError describes a rejected range of fingerprint positions.
//
// It unwraps to ErrInvalidArgument.
type RangeError struct {
	What  string
	Start int
	End   int
	cause error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid %s range [%d, %d)", e.What, e.Start, e.End)
}

// Unwrap returns ErrInvalidArgument and the underlying cause, if any.
func (e *RangeError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidArgument}
	}
	return []error{ErrInvalidArgument, e.cause}
}

// ShardError is the failure of one shard in an archive search.
type ShardError struct {
	Shard int
	Err   error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("shard %d: %v", e.Shard, e.Err)
}

func (e *ShardError) Unwrap() error { return e.Err }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already public.
	for _, sentinel := range []error{ErrInvalidArgument, ErrNotFound, ErrGenerationFailure, ErrCorrupt} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, fingerprint.ErrNotFound) || errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, fingerprint.ErrGenerationFailure) {
		return fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	if errors.Is(err, posting.ErrCorruptSnapshot) || errors.Is(err, fingerprint.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if errors.Is(err, collapse.ErrUnknownStrategy) {
		return fmt.Errorf("%w: %w", ErrUnknownStrategy, err)
	}
	if errors.Is(err, posting.ErrInvalidRange) ||
		errors.Is(err, posting.ErrInvalidGeometry) ||
		errors.Is(err, score.ErrInvalidRange) ||
		errors.Is(err, fingerprint.ErrInvalidRange) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
