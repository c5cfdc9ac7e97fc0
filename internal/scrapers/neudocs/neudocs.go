// Package neudocs retrieves scanned plat files from the NeuDocs document viewer.
package neudocs

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"rrcpermits-backend/internal/components/assert"
	"rrcpermits-backend/internal/components/browser"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/scrapers/rrc"

	"golang.org/x/time/rate"
)

const (
	report_retrieve_open     = "retrieve.open"
	report_retrieve_record   = "retrieve.record"
	report_retrieve_rollback = "retrieve.rollback"
)

const (
	ActionMenuSelector      = ".showActionMenu"
	ImageMenuSelector       = "#imageMenu"
	DownloadWellLogSelector = `//*[@id="imageMenu"]//a[contains(., "Download Well Log")]`
	DownloadLinkSelector    = "a.image.download, a.download"
	CloseDocSelector        = "#closeDoc"
)

// PathSeparator joins the paths of a record with several sub-documents.
const PathSeparator = ";"

type RetrieverOptions struct {
	// Root is the directory plat files are written under, as <root>/<county>/<api>.tif
	Root string
	// Timeout bounds every navigation and wait.
	Timeout time.Duration
	// NavigationInterval is the minimum time between two plat link navigations.
	NavigationInterval time.Duration
}

// Retriever downloads the plat files of permit records.
type Retriever struct {
	launcher browser.Launcher
	opts     RetrieverOptions
	tel      telemetry.API
}

func NewRetriever(launcher browser.Launcher, opts RetrieverOptions, tel telemetry.API) Retriever {
	assert.NotNil(launcher, "launcher")
	assert.NotNil(tel, "telemetry")
	assert.NotEmptyStr(opts.Root, "plat file root")

	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return Retriever{
		launcher: launcher,
		opts:     opts,
		tel:      tel,
	}
}

// Retrieve returns one outcome per record in the same order: the saved path
// (paths joined by ";" for several sub-documents), or "" when the record has
// no plat link or its retrieval failed. Files already on disk are reused,
// ordered by record number.
func (r Retriever) Retrieve(ctx context.Context, records []rrc.Record) []string {
	limit := rate.Inf
	if r.opts.NavigationInterval > 0 {
		limit = rate.Every(r.opts.NavigationInterval)
	}
	run := &retrieval{
		Retriever: r,
		limiter:   rate.NewLimiter(limit, 1),
	}
	defer run.close()

	outcomes := make([]string, len(records))
	for i, rec := range records {
		outcomes[i] = run.record(ctx, rec)
	}
	return outcomes
}

// TargetDir is the directory the plat files of a record are written to.
func (r Retriever) TargetDir(rec rrc.Record) string {
	return filepath.Join(r.opts.Root, safeName(rec.County()))
}

func safeName(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return rrc.UnknownCounty
	}
	return name
}

// existingFiles returns the plat files already saved for `api`.
func existingFiles(dir, api string) ([]string, error) {
	single := filepath.Join(dir, api+".tif")
	_, err := os.Stat(single)
	if err == nil {
		return []string{single}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, api+"_*.tif"))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(matches, func(a, b string) int {
		return compareRecordNumbers(recordNumberOf(a, api), recordNumberOf(b, api))
	})
	return matches, nil
}

func recordNumberOf(path, api string) string {
	name := strings.TrimPrefix(filepath.Base(path), api+"_")
	return strings.TrimSuffix(name, ".tif")
}

// compareRecordNumbers orders numeric record numbers by value so _2 sorts before _10.
func compareRecordNumbers(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

type retrieval struct {
	Retriever
	limiter *rate.Limiter
	session browser.Session
}

func (r *retrieval) close() {
	if r.session != nil {
		r.session.Close()
	}
}

func (r *retrieval) ensureSession(ctx context.Context) (browser.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	session, err := r.launcher.Open(ctx)
	if err != nil {
		r.tel.ReportBroken(report_retrieve_open, err)
		return nil, err
	}
	r.session = session
	return session, nil
}

func (r *retrieval) record(ctx context.Context, rec rrc.Record) string {
	api := safeName(rec.APINumber())
	link := rec.PlatLink()
	if rec.APINumber() == "" || link == "" {
		r.tel.ReportDebug("no plat link", rec.APINumber())
		return ""
	}

	dir := r.TargetDir(rec)
	existing, err := existingFiles(dir, api)
	if err != nil {
		r.tel.ReportBroken(report_retrieve_record, err, api)
		return ""
	}
	if len(existing) > 0 {
		r.tel.ReportDebug("plat file already retrieved", api)
		return strings.Join(existing, PathSeparator)
	}

	session, err := r.ensureSession(ctx)
	if err != nil {
		return ""
	}
	doc := &document{
		retrieval: r,
		session:   session,
		api:       api,
		link:      link,
		dir:       dir,
	}
	err = doc.retrieve(ctx)
	if err != nil {
		r.tel.ReportBroken(report_retrieve_record, err, api, doc.state.String())
		doc.rollback()
		return ""
	}
	r.tel.ReportDebug("retrieved plat file", api, len(doc.saved))
	return strings.Join(doc.saved, PathSeparator)
}

type documentState int

const (
	documentIdle documentState = iota
	documentNavigated
	documentMenuOpen
	documentDownloadTriggered
	documentSaved
)

func (s documentState) String() string {
	switch s {
	case documentIdle:
		return "idle"
	case documentNavigated:
		return "navigated"
	case documentMenuOpen:
		return "menu-open"
	case documentDownloadTriggered:
		return "download-triggered"
	case documentSaved:
		return "saved"
	}
	return fmt.Sprintf("documentState(%d)", int(s))
}

var documentTransitions = map[documentState][]documentState{
	documentIdle:              {documentNavigated},
	documentNavigated:         {documentMenuOpen},
	documentMenuOpen:          {documentDownloadTriggered},
	documentDownloadTriggered: {documentSaved},
	documentSaved:             {documentMenuOpen},
}

// document is the retrieval of every sub-document behind one plat link.
type document struct {
	*retrieval
	session browser.Session
	state   documentState

	api   string
	link  string
	dir   string
	saved []string
}

func (d *document) transition(to documentState) error {
	if !slices.Contains(documentTransitions[d.state], to) {
		return fmt.Errorf("illegal document transition %s -> %s", d.state, to)
	}
	d.state = to
	return nil
}

func (d *document) step(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	return fn(ctx)
}

func (d *document) target(recordNumber string, total int) string {
	if total == 1 {
		return filepath.Join(d.dir, d.api+".tif")
	}
	return filepath.Join(d.dir, fmt.Sprintf("%s_%s.tif", d.api, safeName(recordNumber)))
}

func (d *document) retrieve(ctx context.Context) error {
	err := d.limiter.Wait(ctx)
	if err != nil {
		return err
	}

	var recordNumbers []string
	err = d.step(ctx, func(ctx context.Context) error {
		err := d.session.Navigate(ctx, d.link)
		if err != nil {
			return err
		}
		err = d.session.WaitVisible(ctx, ActionMenuSelector)
		if err != nil {
			return fmt.Errorf("wait for action menu: %w", err)
		}
		recordNumbers, err = d.session.Attributes(ctx, ActionMenuSelector, "recordnumber")
		return err
	})
	if err != nil {
		return err
	}
	err = d.transition(documentNavigated)
	if err != nil {
		return err
	}
	if len(recordNumbers) == 0 {
		return fmt.Errorf("no sub-documents found at '%s'", d.link)
	}

	for _, recordNumber := range recordNumbers {
		err = d.retrieveSubDocument(ctx, recordNumber, len(recordNumbers))
		if err != nil {
			return fmt.Errorf("record number %s: %w", recordNumber, err)
		}
	}
	return nil
}

func (d *document) retrieveSubDocument(ctx context.Context, recordNumber string, total int) error {
	trigger := fmt.Sprintf(`%s[recordnumber=%s]`, ActionMenuSelector, browser.QuoteCSS(recordNumber))

	err := d.step(ctx, func(ctx context.Context) error {
		err := d.session.ScrollIntoView(ctx, trigger)
		if err != nil {
			return err
		}
		err = d.session.WaitVisible(ctx, trigger)
		if err != nil {
			return err
		}
		err = d.session.Click(ctx, trigger)
		if err != nil {
			return err
		}
		return d.session.WaitVisible(ctx, ImageMenuSelector)
	})
	if err != nil {
		return err
	}
	err = d.transition(documentMenuOpen)
	if err != nil {
		return err
	}

	err = d.step(ctx, func(ctx context.Context) error {
		err := d.session.Click(ctx, DownloadWellLogSelector)
		if err != nil {
			return err
		}
		return d.session.WaitVisible(ctx, DownloadLinkSelector)
	})
	if err != nil {
		return err
	}
	err = d.transition(documentDownloadTriggered)
	if err != nil {
		return err
	}

	var download browser.Download
	err = d.step(ctx, func(ctx context.Context) error {
		var err error
		download, err = d.session.Download(ctx, DownloadLinkSelector)
		return err
	})
	if err != nil {
		return err
	}
	target := d.target(recordNumber, total)
	err = download.SaveAs(target)
	if err != nil {
		return err
	}
	d.saved = append(d.saved, target)
	d.tel.ReportDebug("saved plat file", d.api, target)
	err = d.transition(documentSaved)
	if err != nil {
		return err
	}

	return d.step(ctx, func(ctx context.Context) error {
		return d.session.Click(ctx, CloseDocSelector)
	})
}

// rollback removes the files saved during a failed attempt, a partially
// retrieved record must not count as retrieved on the next run.
func (d *document) rollback() {
	for _, path := range d.saved {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			d.tel.ReportWarning(report_retrieve_rollback, err, path)
		}
	}
	d.saved = nil
}
