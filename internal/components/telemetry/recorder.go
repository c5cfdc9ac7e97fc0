package telemetry

import (
	"strings"
	"sync"
)

type Severity int

const (
	SEVERITY_DEBUG Severity = iota
	SEVERITY_WARNING
	SEVERITY_BROKEN
	SEVERITY_COUNT
)

// Report is a single call made against a RecorderAPI.
type Report struct {
	Severity Severity
	Id       string
	Params   []any
	Count    int64
}

// RecorderAPI is an API that keeps every report in memory, it is meant for tests
// that need to assert that a component reported something.
type RecorderAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewRecorderAPI() *RecorderAPI {
	return &RecorderAPI{}
}

func (r *RecorderAPI) push(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.push(Report{Severity: SEVERITY_BROKEN, Id: id, Params: params})
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.push(Report{Severity: SEVERITY_WARNING, Id: id, Params: params})
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.push(Report{Severity: SEVERITY_DEBUG, Id: msg, Params: params})
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.push(Report{Severity: SEVERITY_COUNT, Id: id, Count: count})
}

// Reports returns a copy of every report made so far.
func (r *RecorderAPI) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of a given severity whose id ends with `suffix`,
// scoped ids are prefixed by their namespace so matching on the suffix is usually
// what a test wants.
func (r *RecorderAPI) Find(severity Severity, suffix string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Severity == severity && strings.HasSuffix(report.Id, suffix) {
			out = append(out, report)
		}
	}
	return out
}
