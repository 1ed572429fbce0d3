package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrTranscriptNotFound,
		ErrUpstream,
		ErrRetrieval,
		ErrGeneration,
		ErrConfiguration,
		ErrNoActiveSource,
	}
	for i, a := range all {
		assert.NotEmpty(t, a.Error())
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestWrap_KeepsKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrRetrieval, "embed question", cause)

	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "embed question: retrieval failed: connection reset", err.Error())
}

func TestWrap_DoesNotDoubleTag(t *testing.T) {
	inner := Wrap(ErrUpstream, "get", errors.New("timeout"))
	err := Wrap(ErrUpstream, "fetch abc", inner)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, "fetch abc: get: upstream failure: timeout", err.Error())
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(ErrGeneration, "op", nil))
}

func TestConfigError(t *testing.T) {
	err := ConfigError("overlap %d must be smaller than size %d", 5, 5)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "overlap 5 must be smaller than size 5")
}
