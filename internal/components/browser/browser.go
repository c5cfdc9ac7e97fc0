// Package browser abstracts a controllable browsing context so scrapers can
// drive multi-step site workflows without depending on a live browser.
package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Session is one controllable, stateful browsing context (a single tab).
//
// Selectors beginning with "/" are XPath expressions, everything else is a
// CSS selector. Every method blocks until its condition is met or ctx is done,
// callers bound each step with context.WithTimeout.
//
// note: fault injection point
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	ScrollIntoView(ctx context.Context, selector string) error
	// SelectValues selects exactly the options of a (multi-)select whose value is in `values`.
	SelectValues(ctx context.Context, selector string, values []string) error
	Fill(ctx context.Context, selector, value string) error
	// Count returns how many elements currently match, it never waits for one to appear.
	Count(ctx context.Context, selector string) (int, error)
	// Attributes returns the non-null values of attribute `name` across every element
	// matching a CSS selector, in document order.
	Attributes(ctx context.Context, selector, name string) ([]string, error)
	HTML(ctx context.Context) (string, error)
	// WaitNetworkIdle waits until the navigation started by the last Click settles.
	WaitNetworkIdle(ctx context.Context) error
	// Download clicks `selector` and waits for the download it triggers to complete.
	Download(ctx context.Context, selector string) (Download, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Launcher opens new sessions.
//
// note: fault injection point
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}

// Download is a completed download artifact sitting in the session's download directory.
type Download struct {
	Path              string
	SuggestedFilename string
}

// SaveAs moves the artifact to `dst`, creating parent directories as needed.
func (d Download) SaveAs(dst string) error {
	err := os.MkdirAll(filepath.Dir(dst), 0755)
	if err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	err = os.Rename(d.Path, dst)
	if err == nil {
		return nil
	}

	// rename fails across filesystems, fall back to copying
	src, err := os.Open(d.Path)
	if err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	_, err = io.Copy(out, src)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("save download: %w", err)
	}
	err = out.Close()
	if err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	return os.Remove(d.Path)
}

// QuoteCSS returns `s` as a double-quoted CSS string, usable as an attribute
// selector value.
func QuoteCSS(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
