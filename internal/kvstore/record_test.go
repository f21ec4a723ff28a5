package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIsPureAndDeterministic(t *testing.T) {
	a := Sign("hello")
	b := Sign("hello")
	assert.Equal(t, a, b)

	c := Sign("hello ")
	assert.NotEqual(t, a, c)
}

func TestCreateChecksumIgnoresProcessorOutput(t *testing.T) {
	r := Create("uid-1", "hello", DefaultProcessors())

	require.Equal(t, Sign("hello"), r.CheckSum, "check_sum must be a pure function of the raw value")
	assert.Contains(t, r.Value, MarkerSuffix)
	assert.NotEqual(t, "hello", r.Value)

	found := false
	for _, lang := range Languages {
		if r.Lang == lang {
			found = true
			break
		}
	}
	assert.True(t, found, "lang must be one of the fixed tag set")
}

func TestCreateSizeIsPositiveAndReflectsFinalFields(t *testing.T) {
	r := Create("uid-2", "hello", DefaultProcessors())
	assert.Greater(t, r.Size, 0)
	assert.Equal(t, fieldSize(r), r.Size)
}
