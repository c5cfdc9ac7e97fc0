package rrc

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"rrcpermits-backend/internal/components/assert"
	"rrcpermits-backend/internal/components/browser"
	"rrcpermits-backend/internal/components/telemetry"
)

const (
	report_search_open       = "search.open"
	report_search_walk       = "search.walk"
	report_search_screenshot = "search.screenshot"
	report_search_max_pages  = "search.max-pages"
	report_search_records    = "search.records"
)

const DefaultSearchURL = "https://webapps2.rrc.texas.gov/EWA/drillingPermitsQueryAction.do"

const (
	CountySelectSelector = `select[name="searchArgs.countyCodeHndlr.selectedCodes"]`
	DateFromSelector     = `input[name="searchArgs.approvedDtFromHndlr.inputValue"]`
	DateToSelector       = `input[name="searchArgs.approvedDtToHndlr.inputValue"]`
	SubmitSelector       = `input[type="submit"][value="Submit"]`
	NextPageSelector     = `//a[contains(., "[Next>]")]`
)

type DateRange struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

type SearchConfig struct {
	Counties  []string  `json:"counties" yaml:"counties"`
	DateRange DateRange `json:"date_range" yaml:"date_range"`
}

// SearchResult carries every record collected by a search. Err is set when
// the page walk was cut short, Results then holds the records collected
// before the failure.
type SearchResult struct {
	Results Results
	Pages   int
	Err     error
}

type SearcherOptions struct {
	// URL of the query form, DefaultSearchURL when empty.
	URL string
	// MaxPages stops the walk after this many result pages, 0 means unlimited.
	MaxPages        int
	NavigateTimeout time.Duration
	ResultsTimeout  time.Duration
	IdleTimeout     time.Duration
	// Diagnostics is optional.
	Diagnostics DiagnosticSink
}

// Searcher drives the drilling permit query form and walks every page of results.
type Searcher struct {
	launcher browser.Launcher
	opts     SearcherOptions
	base     *url.URL
	tel      telemetry.API
}

func NewSearcher(launcher browser.Launcher, opts SearcherOptions, tel telemetry.API) Searcher {
	assert.NotNil(launcher, "launcher")
	assert.NotNil(tel, "telemetry")

	if opts.URL == "" {
		opts.URL = DefaultSearchURL
	}
	if opts.NavigateTimeout == 0 {
		opts.NavigateTimeout = 60 * time.Second
	}
	if opts.ResultsTimeout == 0 {
		opts.ResultsTimeout = 30 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 30 * time.Second
	}
	base, err := url.Parse(opts.URL)
	if err != nil {
		panic(fmt.Sprintf("invalid search url '%s': %v", opts.URL, err))
	}

	return Searcher{
		launcher: launcher,
		opts:     opts,
		base:     base,
		tel:      tel,
	}
}

type searchState int

const (
	searchIdle searchState = iota
	searchNavigated
	searchFormSubmitted
	searchPageLoaded
	searchExhausted
)

func (s searchState) String() string {
	switch s {
	case searchIdle:
		return "idle"
	case searchNavigated:
		return "navigated"
	case searchFormSubmitted:
		return "form-submitted"
	case searchPageLoaded:
		return "page-loaded"
	case searchExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("searchState(%d)", int(s))
}

var searchTransitions = map[searchState][]searchState{
	searchIdle:          {searchNavigated},
	searchNavigated:     {searchFormSubmitted},
	searchFormSubmitted: {searchPageLoaded},
	searchPageLoaded:    {searchPageLoaded, searchExhausted},
}

// searchWalk is the state of a single Search call.
type searchWalk struct {
	Searcher
	session browser.Session
	state   searchState
	results Results
	pages   int
}

func (w *searchWalk) transition(to searchState) error {
	if !slices.Contains(searchTransitions[w.state], to) {
		return fmt.Errorf("illegal search transition %s -> %s", w.state, to)
	}
	w.state = to
	return nil
}

func (w *searchWalk) step(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (w *searchWalk) submit(ctx context.Context, codes []string, dates DateRange) error {
	err := w.step(ctx, w.opts.NavigateTimeout, func(ctx context.Context) error {
		return w.session.Navigate(ctx, w.opts.URL)
	})
	if err != nil {
		return err
	}
	err = w.transition(searchNavigated)
	if err != nil {
		return err
	}

	err = w.step(ctx, w.opts.ResultsTimeout, func(ctx context.Context) error {
		err := w.session.SelectValues(ctx, CountySelectSelector, codes)
		if err != nil {
			return err
		}
		err = w.session.Fill(ctx, DateFromSelector, dates.From)
		if err != nil {
			return err
		}
		err = w.session.Fill(ctx, DateToSelector, dates.To)
		if err != nil {
			return err
		}
		return w.session.Click(ctx, SubmitSelector)
	})
	if err != nil {
		return err
	}
	err = w.transition(searchFormSubmitted)
	if err != nil {
		return err
	}

	err = w.step(ctx, w.opts.ResultsTimeout, func(ctx context.Context) error {
		return w.session.WaitVisible(ctx, resultsTableSelector)
	})
	if err != nil {
		return fmt.Errorf("wait for results: %w", err)
	}
	return w.transition(searchPageLoaded)
}

func (w *searchWalk) walk(ctx context.Context) error {
	for {
		content, err := w.session.HTML(ctx)
		if err != nil {
			return err
		}
		w.pages++
		page, err := ParsePageReader(strings.NewReader(content), w.base, w.tel)
		if err != nil {
			return err
		}
		if len(page.Records) == 0 {
			return w.transition(searchExhausted)
		}
		w.results.Append(page)
		w.tel.ReportDebug(fmt.Sprintf("scraped page %d", w.pages), len(page.Records))

		if w.opts.MaxPages > 0 && w.pages >= w.opts.MaxPages {
			w.tel.ReportWarning(report_search_max_pages, fmt.Errorf("stopped after %d pages", w.pages))
			return w.transition(searchExhausted)
		}

		next, err := w.session.Count(ctx, NextPageSelector)
		if err != nil {
			return err
		}
		if next == 0 {
			return w.transition(searchExhausted)
		}

		err = w.step(ctx, w.opts.IdleTimeout, func(ctx context.Context) error {
			err := w.session.Click(ctx, NextPageSelector)
			if err != nil {
				return err
			}
			return w.session.WaitNetworkIdle(ctx)
		})
		if err != nil {
			return fmt.Errorf("next page %d: %w", w.pages+1, err)
		}
		err = w.transition(searchPageLoaded)
		if err != nil {
			return err
		}
	}
}

func (w *searchWalk) captureScreenshot(ctx context.Context) {
	if w.opts.Diagnostics == nil {
		return
	}
	// the walk's ctx may already be done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	screenshot, err := w.session.Screenshot(ctx)
	if err != nil {
		w.tel.ReportWarning(report_search_screenshot, err)
		return
	}
	err = w.opts.Diagnostics.Capture(ctx, screenshot)
	if err != nil {
		w.tel.ReportWarning(report_search_screenshot, err)
	}
}

// Search collects every permit approved within cfg.DateRange in cfg.Counties.
// It never fails outright, see SearchResult.
func (s Searcher) Search(ctx context.Context, cfg SearchConfig) SearchResult {
	resolution := ResolveCounties(cfg.Counties)
	for _, name := range resolution.Unknown {
		s.tel.ReportDebug(
			fmt.Sprintf("unknown county '%s'", name),
			fmt.Sprintf("closest: '%s'", SuggestCounty(name)),
		)
	}
	if len(resolution.Codes) == 0 {
		s.tel.ReportDebug("no counties resolved, skipping search")
		return SearchResult{}
	}

	session, err := s.launcher.Open(ctx)
	if err != nil {
		s.tel.ReportBroken(report_search_open, err)
		return SearchResult{Err: fmt.Errorf("rrc search: %w", err)}
	}
	defer session.Close()

	w := &searchWalk{
		Searcher: s,
		session:  session,
	}
	err = w.submit(ctx, resolution.Codes, cfg.DateRange)
	if err == nil {
		err = w.walk(ctx)
	}
	if err != nil {
		s.tel.ReportBroken(report_search_walk, err, w.state.String(), w.results.Len())
		w.captureScreenshot(ctx)
		return SearchResult{
			Results: w.results,
			Pages:   w.pages,
			Err:     fmt.Errorf("rrc search: %w", err),
		}
	}

	s.tel.ReportCount(report_search_records, int64(w.results.Len()))
	return SearchResult{
		Results: w.results,
		Pages:   w.pages,
	}
}
