package rrc

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"rrcpermits-backend/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parseFixture(t testing.TB, name string, tel telemetry.API) Page {
	t.Helper()

	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	defer f.Close()

	base, err := url.Parse(DefaultSearchURL)
	require.NoError(t, err)

	page, err := ParsePageReader(f, base, tel)
	require.NoError(t, err)
	return page
}

func TestParsePage(t *testing.T) {
	page := parseFixture(t, "page1.html", telemetry.NewRecorderAPI())

	expectedColumns := []string{
		FieldAPINumber,
		FieldPlatLink,
		"Drilling Permit #",
		"Operator Name",
		"Lease Name",
		"County",
		"Submitted Date",
	}
	expectedRecords := []Record{
		{
			FieldAPINumber:      "42-003-48711",
			FieldPlatLink:       "https://webapps2.rrc.texas.gov/neudocs/view?id=1001#page=1",
			"Drilling Permit #": "891204",
			"Operator Name":     "PIONEER NATURAL RESOURCES USA, INC.",
			"Lease Name":        "UNIVERSITY 7-12",
			"County":            "ANDREWS",
			"Submitted Date":    "01/03/2024",
		},
		{
			FieldAPINumber:      "42-003-48712",
			FieldPlatLink:       "https://neudocs.rrc.texas.gov/neudocs/view?id=1002",
			"Drilling Permit #": "891205",
			"Operator Name":     "DIAMONDBACK E&P LLC",
			"Lease Name":        "FASKEN (ELLENBURGER)",
			"County":            "ANDREWS",
			"Submitted Date":    "01/09/2024",
		},
	}

	if diff := cmp.Diff(expectedColumns, page.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(expectedRecords, page.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePageMalformed(t *testing.T) {
	tel := telemetry.NewRecorderAPI()
	page := parseFixture(t, "malformed.html", tel)

	// the empty <tr> is skipped
	require.Len(t, page.Records, 3)

	require.Equal(t, "42-135-30001", page.Records[0].APINumber())
	require.Equal(t, "", page.Records[0].PlatLink())
	require.Equal(t, "Approved", page.Records[0]["Status"])

	require.Equal(t, "", page.Records[1].APINumber())
	require.Equal(t, "", page.Records[1].PlatLink())
	require.Equal(t, "ENDEAVOR ENERGY RESOURCES", page.Records[1]["Operator Name"])
	require.Equal(t, "", page.Records[1]["County"])
	require.Equal(t, "", page.Records[1]["Status"])

	require.Equal(t, "42-135-30003", page.Records[2].APINumber())
	require.Equal(t, "Pending", page.Records[2]["Status"])

	warnings := tel.Find(telemetry.SEVERITY_WARNING, report_parser_images_option)
	require.Len(t, warnings, 2)
	require.Equal(t, "42-135-30001", warnings[0].Params[1])
}

func TestParsePageEmpty(t *testing.T) {
	table := []struct {
		name string
		html string
	}{
		{
			name: "no table",
			html: `<html><body><p>The system is temporarily unavailable.</p></body></html>`,
		},
		{
			name: "header only",
			html: `<table class="DataGrid"><tr><td>title</td></tr><tr><th>API No.</th><th>County</th></tr></table>`,
		},
		{
			name: "header without th cells",
			html: `<table class="DataGrid">
				<tr><td>title</td></tr>
				<tr><td>API No.</td></tr>
				<tr><td><a>42-003-00001</a></td></tr>
			</table>`,
		},
		{
			name: "other table class",
			html: `<table class="Layout">
				<tr><td>title</td></tr>
				<tr><th>API No.</th></tr>
				<tr><td><a>42-003-00001</a></td></tr>
			</table>`,
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			page, err := ParsePageReader(strings.NewReader(test.html), nil, telemetry.NewRecorderAPI())
			require.NoError(t, err)
			require.Empty(t, page.Records)
		})
	}
}

func TestParsePageIgnoresNestedRows(t *testing.T) {
	html := `<table class="DataGrid">
		<tr><td>title</td></tr>
		<tr><th>API No.</th><th>Remarks</th></tr>
		<tr>
			<td><a>42-003-00001</a></td>
			<td><table><tr><td>first</td></tr><tr><td>second</td></tr></table></td>
		</tr>
	</table>`

	page, err := ParsePageReader(strings.NewReader(html), nil, telemetry.NewRecorderAPI())
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "42-003-00001", page.Records[0].APINumber())
	require.Equal(t, "firstsecond", page.Records[0]["Remarks"])
}

func TestParsePageKeepsPlatLinkVerbatim(t *testing.T) {
	html := `<table class="DataGrid">
		<tr><td>title</td></tr>
		<tr><th>API No.</th><th>County</th></tr>
		<tr>
			<td><a>42-003-48711</a><select>
				<option value='{"url": "https://rrcsearch3.neubus.com/esd3-rrc/index.php?_module_=esd&amp;profile=17#/doc/42-003-48711"}'>Images</option>
			</select></td>
			<td>ANDREWS</td>
		</tr>
		<tr>
			<td><a>42-003-48712</a><select>
				<option value='{"url": "https://NeuDocs.rrc.texas.gov:443/view?id=1002"}'>Images</option>
			</select></td>
			<td>ANDREWS</td>
		</tr>
	</table>`

	base, err := url.Parse(DefaultSearchURL)
	require.NoError(t, err)
	page, err := ParsePageReader(strings.NewReader(html), base, telemetry.NewRecorderAPI())
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	require.Equal(t, "https://rrcsearch3.neubus.com/esd3-rrc/index.php?_module_=esd&profile=17#/doc/42-003-48711", page.Records[0].PlatLink())
	require.Equal(t, "https://NeuDocs.rrc.texas.gov:443/view?id=1002", page.Records[1].PlatLink())
}
