package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(16)
	require.NoError(t, err)
	b, err := RandomToken(16)
	require.NoError(t, err)

	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
}

func TestSumSHA256Hex(t *testing.T) {
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SumSHA256Hex(nil))
}
