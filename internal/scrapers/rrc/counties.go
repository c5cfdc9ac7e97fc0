package rrc

import (
	"slices"

	"rrcpermits-backend/lib/textutil"
)

// countyCodes maps Permian Basin county names to the codes used by the
// permit query form.
var countyCodes = map[string]string{
	"ANDREWS":   "003",
	"ECTOR":     "135",
	"MIDLAND":   "329",
	"MARTIN":    "317",
	"HOWARD":    "227",
	"GLASSCOCK": "173",
	"REAGAN":    "383",
	"UPTON":     "461",
	"CRANE":     "103",
	"WARD":      "475",
	"WINKLER":   "495",
	"LOVING":    "301",
	"REEVES":    "389",
	"PECOS":     "371",
}

type County struct {
	Name string
	Code string
}

// Counties lists every known county sorted by name.
func Counties() []County {
	out := make([]County, 0, len(countyCodes))
	for name, code := range countyCodes {
		out = append(out, County{Name: name, Code: code})
	}
	slices.SortFunc(out, func(a, b County) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}

// CountyCode looks up the code of a county, names are case and whitespace insensitive.
func CountyCode(name string) (string, bool) {
	code, ok := countyCodes[textutil.NormalizeKey(name)]
	return code, ok
}

// Resolution is the result of resolving configured county names.
type Resolution struct {
	Codes   []string
	Unknown []string
}

// ResolveCounties maps names to codes in order, skipping duplicates. Names
// that are not known are collected in Unknown.
func ResolveCounties(names []string) Resolution {
	var res Resolution
	for _, name := range names {
		code, ok := CountyCode(name)
		if !ok {
			res.Unknown = append(res.Unknown, name)
			continue
		}
		if !slices.Contains(res.Codes, code) {
			res.Codes = append(res.Codes, code)
		}
	}
	return res
}

// SuggestCounty returns the known county closest to `name`.
func SuggestCounty(name string) string {
	names := make([]string, 0, len(countyCodes))
	for n := range countyCodes {
		names = append(names, n)
	}
	slices.Sort(names)
	match, score := textutil.ClosestMatch(textutil.NormalizeKey(name), names)
	if score < 0.7 {
		return ""
	}
	return match
}
