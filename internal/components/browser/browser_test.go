package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoteCSS(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "12", expected: `"12"`},
		{input: "", expected: `""`},
		{input: `7"]`, expected: `"7\"]"`},
		{input: `a\b`, expected: `"a\\b"`},
		{input: "line\nbreak", expected: `"line\a break"`},
		{input: "nul\x00", expected: "\"nul\uFFFD\""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, QuoteCSS(row.input))
	}
}

func TestScreenshotsArePNG(t *testing.T) {
	require.Equal(t, 100, pngScreenshotQuality)
}

func TestDownloadSaveAs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "download-1")
	require.NoError(t, os.WriteFile(src, []byte("tiff"), 0644))

	dst := filepath.Join(dir, "ANDREWS", "42-003-48711.tif")
	require.NoError(t, Download{Path: src}.SaveAs(dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "tiff", string(content))
	require.NoFileExists(t, src)
}
