package browsertest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchSiteAdvances(t *testing.T) {
	ctx := context.Background()
	s := NewSearchSite("next", "<p>1</p>", "<p>2</p>")

	count, err := s.Count(ctx, "next")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, s.Click(ctx, "next"))
	html, err := s.HTML(ctx)
	require.NoError(t, err)
	require.Equal(t, "<p>2</p>", html)

	count, err = s.Count(ctx, "next")
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.Error(t, s.Click(ctx, "next"))
}

func TestDocumentViewerDownloads(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewDocumentViewer(dir, map[string][]string{
		"https://neudocs.example/doc": {"7"},
	})

	require.Error(t, s.Navigate(ctx, "https://neudocs.example/missing"))
	require.NoError(t, s.Navigate(ctx, "https://neudocs.example/doc"))

	numbers, err := s.Attributes(ctx, ".showActionMenu", "recordnumber")
	require.NoError(t, err)
	require.Equal(t, []string{"7"}, numbers)

	require.NoError(t, s.Click(ctx, `.showActionMenu[recordnumber="7"]`))
	download, err := s.Download(ctx, "a.download")
	require.NoError(t, err)

	dst := filepath.Join(dir, "out", "plat.tif")
	require.NoError(t, download.SaveAs(dst))
	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "https://neudocs.example/doc#7", string(content))
	require.NoFileExists(t, download.Path)

	require.Len(t, s.Calls("Navigate"), 2)
}
