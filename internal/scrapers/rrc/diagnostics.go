package rrc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const ScreenshotFilename = "error_screenshot.png"

// DiagnosticSink receives a screenshot of the page when a search is cut short.
//
// note: fault injection point
type DiagnosticSink interface {
	Capture(ctx context.Context, screenshot []byte) error
}

// FileDiagnostics writes the screenshot to `<Dir>/error_screenshot.png`.
type FileDiagnostics struct {
	Dir string
}

func (f FileDiagnostics) Capture(ctx context.Context, screenshot []byte) error {
	err := os.MkdirAll(f.Dir, 0755)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	err = os.WriteFile(filepath.Join(f.Dir, ScreenshotFilename), screenshot, 0644)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	return nil
}
