package xcorrsound

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/xcorrsound/blobstore"
	"github.com/hupe1980/xcorrsound/fingerprint"
	"github.com/hupe1980/xcorrsound/internal/collapse"
	"github.com/hupe1980/xcorrsound/internal/posting"
	"github.com/hupe1980/xcorrsound/internal/score"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{fingerprint.ErrNotFound, ErrNotFound},
		{fmt.Errorf("open: %w", blobstore.ErrNotFound), ErrNotFound},
		{fingerprint.ErrGenerationFailure, ErrGenerationFailure},
		{posting.ErrCorruptSnapshot, ErrCorrupt},
		{fingerprint.ErrCorrupt, ErrCorrupt},
		{collapse.ErrUnknownStrategy, ErrUnknownStrategy},
		{posting.ErrInvalidRange, ErrInvalidArgument},
		{posting.ErrInvalidGeometry, ErrInvalidArgument},
		{score.ErrInvalidRange, ErrInvalidArgument},
		{fingerprint.ErrInvalidRange, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.in.Error(), func(t *testing.T) {
			got := translateError(tt.in)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.in)
		})
	}

	assert.NoError(t, translateError(nil))

	other := errors.New("other")
	assert.Equal(t, other, translateError(other))

	already := fmt.Errorf("%w: x", ErrNotFound)
	assert.Equal(t, already, translateError(already))
}

func TestRangeError(t *testing.T) {
	err := error(&RangeError{What: "snippet", Start: 5, End: 2})
	assert.EqualError(t, err, "invalid snippet range [5, 2)")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = &RangeError{What: "x", cause: posting.ErrInvalidRange}
	assert.ErrorIs(t, err, posting.ErrInvalidRange)
}

func TestShardError(t *testing.T) {
	err := error(&ShardError{Shard: 3, Err: ErrShardTimeout})
	assert.EqualError(t, err, "shard 3: shard timed out")
	assert.ErrorIs(t, err, ErrShardTimeout)

	var se *ShardError
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &se)
	assert.Equal(t, 3, se.Shard)
}
