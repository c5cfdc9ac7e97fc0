// Package browsertest provides scripted in-memory implementations of the browser interfaces.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"rrcpermits-backend/internal/components/browser"
)

// Call is a single method invocation recorded by a Session.
type Call struct {
	Method string
	Args   []string
}

// Session is a browser.Session whose behavior is scripted through its *Func
// fields, unset funcs succeed with zero values. Every call is recorded.
type Session struct {
	mu     sync.Mutex
	calls  []Call
	closed bool

	NavigateFunc        func(url string) error
	WaitVisibleFunc     func(selector string) error
	ClickFunc           func(selector string) error
	ScrollIntoViewFunc  func(selector string) error
	SelectValuesFunc    func(selector string, values []string) error
	FillFunc            func(selector, value string) error
	CountFunc           func(selector string) (int, error)
	AttributesFunc      func(selector, name string) ([]string, error)
	HTMLFunc            func() (string, error)
	WaitNetworkIdleFunc func() error
	DownloadFunc        func(selector string) (browser.Download, error)
	ScreenshotFunc      func() ([]byte, error)
}

func (s *Session) record(method string, args ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Args: args})
}

// Calls returns the recorded calls of a method, or every call when method is "".
func (s *Session) Calls(method string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.record("Navigate", url)
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.NavigateFunc != nil {
		return s.NavigateFunc(url)
	}
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	s.record("WaitVisible", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.WaitVisibleFunc != nil {
		return s.WaitVisibleFunc(selector)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	s.record("Click", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ClickFunc != nil {
		return s.ClickFunc(selector)
	}
	return nil
}

func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	s.record("ScrollIntoView", selector)
	if s.ScrollIntoViewFunc != nil {
		return s.ScrollIntoViewFunc(selector)
	}
	return nil
}

func (s *Session) SelectValues(ctx context.Context, selector string, values []string) error {
	s.record("SelectValues", append([]string{selector}, values...)...)
	if s.SelectValuesFunc != nil {
		return s.SelectValuesFunc(selector, values)
	}
	return nil
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	s.record("Fill", selector, value)
	if s.FillFunc != nil {
		return s.FillFunc(selector, value)
	}
	return nil
}

func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	s.record("Count", selector)
	if s.CountFunc != nil {
		return s.CountFunc(selector)
	}
	return 0, nil
}

func (s *Session) Attributes(ctx context.Context, selector, name string) ([]string, error) {
	s.record("Attributes", selector, name)
	if s.AttributesFunc != nil {
		return s.AttributesFunc(selector, name)
	}
	return nil, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	s.record("HTML")
	if s.HTMLFunc != nil {
		return s.HTMLFunc()
	}
	return "<html><head></head><body></body></html>", nil
}

func (s *Session) WaitNetworkIdle(ctx context.Context) error {
	s.record("WaitNetworkIdle")
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.WaitNetworkIdleFunc != nil {
		return s.WaitNetworkIdleFunc()
	}
	return nil
}

func (s *Session) Download(ctx context.Context, selector string) (browser.Download, error) {
	s.record("Download", selector)
	if err := ctx.Err(); err != nil {
		return browser.Download{}, err
	}
	if s.DownloadFunc != nil {
		return s.DownloadFunc(selector)
	}
	return browser.Download{}, fmt.Errorf("no download scripted for '%s'", selector)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.record("Screenshot")
	if s.ScreenshotFunc != nil {
		return s.ScreenshotFunc()
	}
	return []byte("\x89PNG fake screenshot"), nil
}

func (s *Session) Close() error {
	s.record("Close")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Launcher hands out sessions built by NewSession and counts how many were opened.
type Launcher struct {
	NewSession func() (*Session, error)
	OpenErr    error

	mu       sync.Mutex
	sessions []*Session
}

// NewLauncher creates a launcher that always opens `session`.
func NewLauncher(session *Session) *Launcher {
	return &Launcher{
		NewSession: func() (*Session, error) { return session, nil },
	}
}

func (l *Launcher) Open(ctx context.Context) (browser.Session, error) {
	if l.OpenErr != nil {
		return nil, l.OpenErr
	}
	session, err := l.NewSession()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.sessions = append(l.sessions, session)
	l.mu.Unlock()
	return session, nil
}

// Sessions returns every session opened so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Session, len(l.sessions))
	copy(out, l.sessions)
	return out
}
