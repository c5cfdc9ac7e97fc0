package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rrcpermits-backend/internal/components/telemetry"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_chrome_open     = "chrome.open"
	report_chrome_download = "chrome.download"
	report_chrome_close    = "chrome.close"
)

var tracer = otel.Tracer("rrcpermits/browser")

// chrome encodes screenshots as jpeg below quality 100.
const pngScreenshotQuality = 100

// a click that does not start a navigation within this window is treated as settled
const navigationGrace = 2 * time.Second

type ChromeOptions struct {
	Headless bool   `json:"headless" yaml:"headless"`
	ExecPath string `json:"exec_path" yaml:"exec_path"`
	// DownloadDir is where in-flight downloads land, a temporary directory is used when empty.
	DownloadDir string `json:"download_dir" yaml:"download_dir"`
	UserAgent   string `json:"user_agent" yaml:"user_agent"`
}

// ChromeLauncher opens headless chrome sessions through the devtools protocol.
type ChromeLauncher struct {
	opts ChromeOptions
	tel  telemetry.API
}

func NewChromeLauncher(opts ChromeOptions, tel telemetry.API) ChromeLauncher {
	return ChromeLauncher{
		opts: opts,
		tel:  tel,
	}
}

func (l ChromeLauncher) Open(ctx context.Context) (Session, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(l.opts.UserAgent))
	}

	downloadDir := l.opts.DownloadDir
	tempDir := false
	if downloadDir == "" {
		dir, err := os.MkdirTemp("", "rrcpermits-downloads-")
		if err != nil {
			return nil, fmt.Errorf("open browser: %w", err)
		}
		downloadDir = dir
		tempDir = true
	} else {
		err := os.MkdirAll(downloadDir, 0755)
		if err != nil {
			return nil, fmt.Errorf("open browser: %w", err)
		}
	}
	downloadDir, err := filepath.Abs(downloadDir)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		tel:         l.tel,
		downloadDir: downloadDir,
		tempDir:     tempDir,
		suggested:   map[string]string{},
	}
	chromedp.ListenTarget(browserCtx, s.onEvent)

	// the first Run starts the browser process
	err = s.run(
		ctx, "Open",
		page.SetLifecycleEventsEnabled(true),
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		s.Close()
		l.tel.ReportBroken(report_chrome_open, err)
		return nil, fmt.Errorf("open browser: %w", err)
	}
	l.tel.ReportDebug(report_chrome_open, downloadDir)
	return s, nil
}

type downloadResult struct {
	guid string
	err  error
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	tel    telemetry.API

	downloadDir string
	tempDir     bool

	mu          sync.Mutex
	navigations uint64
	idleAt      uint64
	clickMark   uint64
	clickedAt   time.Time
	suggested   map[string]string
	pending     chan downloadResult
	closed      bool
}

func (s *chromeSession) onEvent(ev any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case *page.EventLifecycleEvent:
		switch ev.Name {
		case "init":
			s.navigations++
		case "networkIdle":
			s.idleAt = s.navigations
		}
	case *cdpbrowser.EventDownloadWillBegin:
		s.suggested[ev.GUID] = ev.SuggestedFilename
	case *cdpbrowser.EventDownloadProgress:
		if s.pending == nil {
			return
		}
		switch ev.State {
		case cdpbrowser.DownloadProgressStateCompleted:
			s.pending <- downloadResult{guid: ev.GUID}
			s.pending = nil
		case cdpbrowser.DownloadProgressStateCanceled:
			s.pending <- downloadResult{guid: ev.GUID, err: fmt.Errorf("download %s was canceled", ev.GUID)}
			s.pending = nil
		}
	}
}

// run executes actions against the browser tab while honoring the deadline
// and cancellation of the caller's ctx.
func (s *chromeSession) run(ctx context.Context, name string, actions ...chromedp.Action) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func queryOption(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "/") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func jsString(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return string(encoded)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	s.markClick()
	err := s.run(ctx, "Navigate", chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("navigate '%s': %w", url, err)
	}
	return nil
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string) error {
	err := s.run(ctx, "WaitVisible", chromedp.WaitVisible(selector, queryOption(selector)))
	if err != nil {
		return fmt.Errorf("wait visible '%s': %w", selector, err)
	}
	return nil
}

func (s *chromeSession) markClick() {
	s.mu.Lock()
	s.clickMark = s.navigations
	s.clickedAt = time.Now()
	s.mu.Unlock()
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	s.markClick()
	err := s.run(ctx, "Click", chromedp.Click(selector, queryOption(selector), chromedp.NodeVisible))
	if err != nil {
		return fmt.Errorf("click '%s': %w", selector, err)
	}
	return nil
}

func (s *chromeSession) ScrollIntoView(ctx context.Context, selector string) error {
	err := s.run(ctx, "ScrollIntoView", chromedp.ScrollIntoView(selector, queryOption(selector)))
	if err != nil {
		return fmt.Errorf("scroll into view '%s': %w", selector, err)
	}
	return nil
}

func (s *chromeSession) SelectValues(ctx context.Context, selector string, values []string) error {
	if values == nil {
		values = []string{}
	}
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const wanted = new Set(%s);
	for (const option of el.options) option.selected = wanted.has(option.value);
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
})()`, jsString(selector), jsString(values))

	var found bool
	err := s.run(
		ctx, "SelectValues",
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, &found),
	)
	if err != nil {
		return fmt.Errorf("select values '%s': %w", selector, err)
	}
	if !found {
		return fmt.Errorf("select values '%s': element not found", selector)
	}
	return nil
}

func (s *chromeSession) Fill(ctx context.Context, selector, value string) error {
	err := s.run(ctx, "Fill", chromedp.SetValue(selector, value, queryOption(selector)))
	if err != nil {
		return fmt.Errorf("fill '%s': %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Count(ctx context.Context, selector string) (int, error) {
	by := chromedp.ByQueryAll
	if strings.HasPrefix(selector, "/") {
		by = chromedp.BySearch
	}
	var nodes []*cdp.Node
	err := s.run(ctx, "Count", chromedp.Nodes(selector, &nodes, by, chromedp.AtLeast(0)))
	if err != nil {
		return 0, fmt.Errorf("count '%s': %w", selector, err)
	}
	return len(nodes), nil
}

func (s *chromeSession) Attributes(ctx context.Context, selector, name string) ([]string, error) {
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map(el => el.getAttribute(%s)).filter(v => v !== null)`,
		jsString(selector), jsString(name),
	)
	var values []string
	err := s.run(ctx, "Attributes", chromedp.Evaluate(script, &values))
	if err != nil {
		return nil, fmt.Errorf("attributes '%s' of '%s': %w", name, selector, err)
	}
	return values, nil
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var content string
	err := s.run(ctx, "HTML", chromedp.OuterHTML("html", &content, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return content, nil
}

func (s *chromeSession) WaitNetworkIdle(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "WaitNetworkIdle")
	defer span.End()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		started := s.navigations > s.clickMark
		settled := started && s.idleAt == s.navigations
		quiet := !started && time.Since(s.clickedAt) > navigationGrace
		s.mu.Unlock()

		if settled {
			return nil
		}
		if quiet {
			var ready bool
			err := s.run(ctx, "ReadyState", chromedp.Evaluate(`document.readyState === "complete"`, &ready))
			if err != nil {
				return fmt.Errorf("wait network idle: %w", err)
			}
			if ready {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, ctx.Err().Error())
			return fmt.Errorf("wait network idle: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *chromeSession) Download(ctx context.Context, selector string) (Download, error) {
	result := make(chan downloadResult, 1)
	s.mu.Lock()
	s.pending = result
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
	}()

	err := s.run(ctx, "Download", chromedp.Click(selector, queryOption(selector), chromedp.NodeVisible))
	if err != nil {
		return Download{}, fmt.Errorf("download '%s': %w", selector, err)
	}

	select {
	case <-ctx.Done():
		return Download{}, fmt.Errorf("download '%s': %w", selector, ctx.Err())
	case res := <-result:
		if res.err != nil {
			s.tel.ReportWarning(report_chrome_download, res.err)
			return Download{}, res.err
		}
		s.mu.Lock()
		suggested := s.suggested[res.guid]
		delete(s.suggested, res.guid)
		s.mu.Unlock()

		_, span := tracer.Start(ctx, "DownloadCompleted")
		span.SetAttributes(attribute.String("download.suggested_filename", suggested))
		span.End()

		return Download{
			Path:              filepath.Join(s.downloadDir, res.guid),
			SuggestedFilename: suggested,
		}, nil
	}
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, "Screenshot", chromedp.FullScreenshot(&buf, pngScreenshotQuality))
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

func (s *chromeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if s.tempDir {
		err := os.RemoveAll(s.downloadDir)
		if err != nil {
			s.tel.ReportWarning(report_chrome_close, err)
		}
	}
	return nil
}
