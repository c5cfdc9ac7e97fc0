package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "andrews", expected: "ANDREWS"},
		{input: " Reeves\n", expected: "REEVES"},
		{input: "los\t angeles", expected: "LOS ANGELES"},
	}

	for _, row := range table {
		require.Equal(t, row.expected, NormalizeKey(row.input))
	}
}

func TestClosestMatch(t *testing.T) {
	match, score := ClosestMatch("MIDLANDS", []string{"ANDREWS", "MIDLAND", "ECTOR"})
	require.Equal(t, "MIDLAND", match)
	require.Greater(t, score, 0.9)

	match, _ = ClosestMatch("MIDLAND", nil)
	require.Equal(t, "", match)
}
