package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBatchAllValid(t *testing.T) {
	bird := Bird{Swedish: "Kråka", English: "Crow", Latin: "Corvus corone"}
	first := newPhoto("a.jpg", bird, []string{"forest"})
	second := newPhoto("b.jpg", bird, []string{"forest"})

	records := []Record{
		{Filename: "a.jpg", Photo: first},
		{Filename: "b.jpg", Photo: second},
	}

	photos, diags := ValidateBatch(records)
	require.Empty(t, diags)
	require.Len(t, photos, 2)
	// Discovery order is preserved.
	assert.Same(t, first, photos[0])
	assert.Same(t, second, photos[1])
}

func TestValidateBatchCollectsAllDiagnostics(t *testing.T) {
	bird := Bird{Swedish: "Kråka", English: "Crow", Latin: "Corvus corone"}
	records := []Record{
		{Filename: "a.jpg", Reason: "could not find bird data for NOSUCH"},
		{Filename: "b.jpg", Photo: newPhoto("b.jpg", bird, []string{"forest"})},
		{Filename: "c.jpg", Reason: "could not find tags for NOSUCH"},
	}

	photos, diags := ValidateBatch(records)
	assert.Nil(t, photos)
	require.Len(t, diags, 2)
	assert.Equal(t, "File: a.jpg is invalid: could not find bird data for NOSUCH", diags[0])
	assert.Equal(t, "File: c.jpg is invalid: could not find tags for NOSUCH", diags[1])
}

func TestBatchErrorMessage(t *testing.T) {
	err := &BatchError{Diagnostics: []string{"File: a.jpg is invalid: bad"}}
	assert.Contains(t, err.Error(), "invalid photo batch")
	assert.Contains(t, err.Error(), "File: a.jpg is invalid: bad")
}
