package rrc

const (
	FieldAPINumber    = "API NO."
	FieldPlatLink     = "PlatLink"
	FieldPlatFilePath = "PlatFilePath"
	FieldCounty       = "County"

	// UnknownCounty is used in place of a record's county when it has none.
	UnknownCounty = "UnknownCounty"
)

// Record is one drilling permit, keyed by column name.
type Record map[string]string

func (r Record) APINumber() string {
	return r[FieldAPINumber]
}

func (r Record) PlatLink() string {
	return r[FieldPlatLink]
}

func (r Record) County() string {
	county := r[FieldCounty]
	if county == "" {
		return UnknownCounty
	}
	return county
}

// Page is the output of parsing a single results page.
type Page struct {
	Columns []string
	Records []Record
}

// Results accumulates records across result pages. Columns is the ordered
// union of every page's header, every record carries every column.
type Results struct {
	Columns []string
	Records []Record
}

func (r *Results) hasColumn(name string) bool {
	for _, c := range r.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a page's records, extending Columns with any column not yet seen.
func (r *Results) Append(page Page) {
	added := false
	for _, c := range page.Columns {
		if !r.hasColumn(c) {
			r.Columns = append(r.Columns, c)
			added = true
		}
	}
	r.Records = append(r.Records, page.Records...)

	if added {
		for _, rec := range r.Records {
			r.fill(rec)
		}
		return
	}
	for _, rec := range page.Records {
		r.fill(rec)
	}
}

func (r *Results) fill(rec Record) {
	for _, c := range r.Columns {
		if _, ok := rec[c]; !ok {
			rec[c] = ""
		}
	}
}

func (r *Results) Len() int {
	return len(r.Records)
}
