package rrc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCounties(t *testing.T) {
	table := []struct {
		names   []string
		codes   []string
		unknown []string
	}{
		{
			names: []string{"ANDREWS", "MIDLAND"},
			codes: []string{"003", "329"},
		},
		{
			names: []string{" reeves ", "Pecos\n"},
			codes: []string{"389", "371"},
		},
		{
			names:   []string{"ECTOR", "NOT_A_COUNTY", "ector"},
			codes:   []string{"135"},
			unknown: []string{"NOT_A_COUNTY"},
		},
		{
			names:   []string{"HARRIS"},
			unknown: []string{"HARRIS"},
		},
	}

	for _, test := range table {
		res := ResolveCounties(test.names)
		require.Equal(t, test.codes, res.Codes)
		require.Equal(t, test.unknown, res.Unknown)
	}
}

func TestCounties(t *testing.T) {
	counties := Counties()
	require.Len(t, counties, 14)
	require.Equal(t, County{Name: "ANDREWS", Code: "003"}, counties[0])
	require.Equal(t, County{Name: "WINKLER", Code: "495"}, counties[len(counties)-1])
}

func TestSuggestCounty(t *testing.T) {
	require.Equal(t, "GLASSCOCK", SuggestCounty("glascock"))
	require.Equal(t, "", SuggestCounty("zzzzzz"))
}
