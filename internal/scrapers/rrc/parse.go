package rrc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parser_images_option = "parser.images-option"
	report_parser_plat_link     = "parser.plat-link"
)

const resultsTableSelector = "table.DataGrid"

// ParsePageReader parses a results page from raw html, see ParsePage.
func ParsePageReader(r io.Reader, base *url.URL, tel telemetry.API) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse results page: %w", err)
	}
	return ParsePage(doc, base, tel), nil
}

// ParsePage extracts the permit records of a single results page.
//
// The results table lays out its rows as [spacer, header, data...], a page
// without a table or without any data rows yields an empty Page. Relative plat
// links are resolved against `base` when it is not nil.
func ParsePage(doc *goquery.Document, base *url.URL, tel telemetry.API) Page {
	table := doc.Find(resultsTableSelector).First()
	if table.Length() == 0 {
		return Page{}
	}
	body := table.ChildrenFiltered("tbody").First()
	if body.Length() == 0 {
		return Page{}
	}
	rows := body.ChildrenFiltered("tr")
	if rows.Length() < 3 {
		return Page{}
	}

	headers := parseHeader(rows.Eq(1))
	if len(headers) == 0 {
		return Page{}
	}

	page := Page{Columns: headers}
	rows.Slice(2, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		page.Records = append(page.Records, parseRow(headers, cells, base, tel))
	})
	return page
}

func parseHeader(row *goquery.Selection) []string {
	cells := row.ChildrenFiltered("th")
	if cells.Length() == 0 {
		return nil
	}

	headers := make([]string, 0, cells.Length()+1)
	cells.Each(func(i int, th *goquery.Selection) {
		if i == 0 {
			headers = append(headers, FieldAPINumber, FieldPlatLink)
			return
		}
		headers = append(headers, htmlutil.NormalizeText(th.Text()))
	})
	return headers
}

func parseRow(headers []string, cells *goquery.Selection, base *url.URL, tel telemetry.API) Record {
	first := cells.First()
	rec := Record{}

	apiNumber := ""
	link := first.Find("a").First()
	if link.Length() > 0 {
		apiNumber = htmlutil.NormalizeText(link.Text())
	}
	rec[FieldAPINumber] = apiNumber
	rec[FieldPlatLink] = parsePlatLink(first, apiNumber, base, tel)

	for i := 2; i < len(headers); i++ {
		value := ""
		cell := cells.Eq(i - 1)
		if cell.Length() > 0 {
			value = htmlutil.NormalizeText(cell.Text())
		}
		rec[headers[i]] = value
	}
	return rec
}

// parsePlatLink reads the document viewer url out of the JSON value of the
// "Images" option, ex. <option value='{"url": "https://..."}'>Images</option>
func parsePlatLink(cell *goquery.Selection, apiNumber string, base *url.URL, tel telemetry.API) string {
	option := cell.Find("select option").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "Images")
	}).First()
	if option.Length() == 0 {
		return ""
	}

	var value map[string]any
	err := json.Unmarshal([]byte(option.AttrOr("value", "")), &value)
	if err != nil {
		tel.ReportWarning(report_parser_images_option, fmt.Errorf("decode option value: %w", err), apiNumber)
		return ""
	}
	rawUrl, ok := value["url"].(string)
	if !ok || strings.TrimSpace(rawUrl) == "" {
		tel.ReportWarning(report_parser_images_option, fmt.Errorf("option value has no url"), apiNumber)
		return ""
	}

	resolved, err := htmlutil.ResolveURL(base, rawUrl)
	if err != nil {
		tel.ReportWarning(report_parser_plat_link, err, apiNumber, rawUrl)
		return ""
	}
	return resolved
}
