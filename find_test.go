package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacecache/spacecache/internal/store"
)

func TestParsePredicate(t *testing.T) {
	pred, err := parsePredicate([]string{"sys.type=Entry", "fields.title=Hello"})
	require.NoError(t, err)
	assert.Equal(t, store.Predicate{
		"sys.type":     "Entry",
		"fields.title": "Hello",
	}, pred)
}

func TestParsePredicate_ValueWithEquals(t *testing.T) {
	// Only the first "=" splits; the rest belongs to the value.
	pred, err := parsePredicate([]string{"fields.query=a=b"})
	require.NoError(t, err)
	assert.Equal(t, store.Predicate{"fields.query": "a=b"}, pred)
}

func TestParsePredicate_Empty(t *testing.T) {
	pred, err := parsePredicate(nil)
	require.NoError(t, err)
	assert.Empty(t, pred)
}

func TestParsePredicate_Malformed(t *testing.T) {
	_, err := parsePredicate([]string{"no-equals-here"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path=value")

	_, err = parsePredicate([]string{"=value"})
	require.Error(t, err)
}
