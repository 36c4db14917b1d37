package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComponentKind_RoundTripsEveryKind(t *testing.T) {
	for _, k := range ComponentKinds {
		got, err := ParseComponentKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseComponentKind("C4")
	assert.Error(t, err)
	assert.Equal(t, "ComponentKind(9)", ComponentKind(9).String())
}

func TestParseProductKind_RoundTripsEveryKind(t *testing.T) {
	for _, k := range ProductKinds {
		got, err := ParseProductKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseProductKind("p1")
	assert.Error(t, err)
}
