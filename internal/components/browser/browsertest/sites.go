package browsertest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"rrcpermits-backend/internal/components/browser"
)

// NewSearchSite returns a session serving `pages` as successive result pages.
// Clicking `nextSelector` moves to the following page and Count reports the
// control only while another page follows.
func NewSearchSite(nextSelector string, pages ...string) *Session {
	var mu sync.Mutex
	current := 0

	s := &Session{}
	s.HTMLFunc = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if current >= len(pages) {
			return "<html><body></body></html>", nil
		}
		return pages[current], nil
	}
	s.CountFunc = func(selector string) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		if selector == nextSelector && current < len(pages)-1 {
			return 1, nil
		}
		return 0, nil
	}
	s.ClickFunc = func(selector string) error {
		if selector != nextSelector {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		if current >= len(pages)-1 {
			return fmt.Errorf("click '%s': no such element", selector)
		}
		current++
		return nil
	}
	return s
}

var (
	recordNumberRegex = regexp.MustCompile(`recordnumber="((?:[^"\\]|\\.)*)"`)
	cssEscapeRegex    = regexp.MustCompile(`\\(.)`)
)

// NewDocumentViewer returns a session emulating a document viewer that
// exposes the sub-document record numbers of `documents[url]` for each url.
// Downloads are written into `dir` and contain "<url>#<record number>".
func NewDocumentViewer(dir string, documents map[string][]string) *Session {
	var mu sync.Mutex
	currentURL := ""
	currentRecord := ""
	downloads := 0

	s := &Session{}
	s.NavigateFunc = func(url string) error {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := documents[url]; !ok {
			return fmt.Errorf("navigate '%s': net::ERR_NAME_NOT_RESOLVED", url)
		}
		currentURL = url
		currentRecord = ""
		return nil
	}
	s.AttributesFunc = func(selector, name string) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		if name != "recordnumber" {
			return nil, nil
		}
		return append([]string(nil), documents[currentURL]...), nil
	}
	s.ClickFunc = func(selector string) error {
		match := recordNumberRegex.FindStringSubmatch(selector)
		if match == nil {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		// only single character escapes are understood
		currentRecord = cssEscapeRegex.ReplaceAllString(match[1], "$1")
		return nil
	}
	s.DownloadFunc = func(selector string) (browser.Download, error) {
		mu.Lock()
		defer mu.Unlock()
		downloads++
		path := filepath.Join(dir, fmt.Sprintf("download-%d", downloads))
		err := os.WriteFile(path, []byte(currentURL+"#"+currentRecord), 0644)
		if err != nil {
			return browser.Download{}, err
		}
		return browser.Download{Path: path, SuggestedFilename: "plat.tif"}, nil
	}
	return s
}
