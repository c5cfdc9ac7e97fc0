package aggregate

import (
	"bytes"
	"strings"
	"testing"

	"rrcpermits-backend/internal/scrapers/rrc"

	"github.com/stretchr/testify/require"
)

func sampleResults() rrc.Results {
	var results rrc.Results
	results.Append(rrc.Page{
		Columns: []string{rrc.FieldAPINumber, rrc.FieldPlatLink, "Operator Name", "County"},
		Records: []rrc.Record{
			{rrc.FieldAPINumber: "42-003-48711", rrc.FieldPlatLink: "https://neudocs/1", "Operator Name": "PIONEER", "County": "ANDREWS"},
			{rrc.FieldAPINumber: "42-003-48712", rrc.FieldPlatLink: "", "Operator Name": "OXY, USA", "County": "ANDREWS"},
		},
	})
	return results
}

func TestAttach(t *testing.T) {
	results := sampleResults()
	table := Attach(results, []string{"data/plat_files/ANDREWS/42-003-48711.tif", ""})

	require.Equal(t, []string{rrc.FieldAPINumber, rrc.FieldPlatLink, "Operator Name", "County", rrc.FieldPlatFilePath}, table.Columns)
	require.Equal(t, 2, table.Len())
	require.Equal(t, "data/plat_files/ANDREWS/42-003-48711.tif", table.Rows[0][4])
	require.Equal(t, "", table.Rows[1][4])
	require.Equal(t, "data/plat_files/ANDREWS/42-003-48711.tif", results.Records[0][rrc.FieldPlatFilePath])
}

func TestAttachLengthMismatch(t *testing.T) {
	require.PanicsWithValue(t, "expected plat outcome count to be 2, got 1", func() {
		Attach(sampleResults(), []string{""})
	})
}

func TestWriteCSV(t *testing.T) {
	table := Attach(sampleResults(), []string{"a.tif", ""})

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	require.Equal(t,
		"API NO.,PlatLink,Operator Name,County,PlatFilePath\n"+
			"42-003-48711,https://neudocs/1,PIONEER,ANDREWS,a.tif\n"+
			"42-003-48712,,\"OXY, USA\",ANDREWS,\n",
		buf.String(),
	)
}

func TestRender(t *testing.T) {
	table := Attach(sampleResults(), []string{"a.tif", ""})

	var buf bytes.Buffer
	table.Render(&buf, 1, rrc.FieldAPINumber, rrc.FieldPlatFilePath, "missing")
	out := buf.String()
	require.True(t, strings.Contains(out, "42-003-48711"))
	require.False(t, strings.Contains(out, "42-003-48712"))
	require.True(t, strings.Contains(strings.ToLower(out), "1 more"))
	require.False(t, strings.Contains(out, "PIONEER"))
}
