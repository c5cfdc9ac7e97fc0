package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rrcpermits-backend/internal/components/browser/browsertest"
	"rrcpermits-backend/internal/components/chrono"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/db"
	"rrcpermits-backend/internal/scrapers/neudocs"
	"rrcpermits-backend/internal/scrapers/rrc"

	"github.com/stretchr/testify/require"
)

var testTime = chrono.FixedImpl{At: time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)}

func createStore(t testing.TB) Store {
	database, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database, testTime)
}

type stubSearcher struct {
	result rrc.SearchResult
}

func (s stubSearcher) Search(ctx context.Context, cfg rrc.SearchConfig) rrc.SearchResult {
	return s.result
}

type stubRetriever struct {
	outcomes []string
}

func (s stubRetriever) Retrieve(ctx context.Context, records []rrc.Record) []string {
	return s.outcomes
}

func twoPermits() rrc.Results {
	var results rrc.Results
	results.Append(rrc.Page{
		Columns: []string{rrc.FieldAPINumber, rrc.FieldPlatLink, "County"},
		Records: []rrc.Record{
			{rrc.FieldAPINumber: "42-003-00001", rrc.FieldPlatLink: "", "County": "ANDREWS"},
			{rrc.FieldAPINumber: "42-003-00002", rrc.FieldPlatLink: "", "County": "ANDREWS"},
		},
	})
	return results
}

var andrews = rrc.SearchConfig{
	Counties:  []string{"ANDREWS"},
	DateRange: rrc.DateRange{From: "01/01/2024", To: "01/31/2024"},
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)

	job, err := store.Create(ctx, andrews)
	require.NoError(t, err)
	require.Equal(t, StatusPending, job.Status)
	require.NotEmpty(t, job.ID)

	job.Status = StatusFailed
	job.Error = "boom"
	require.NoError(t, store.Update(ctx, &job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, "boom", got.Error)
	require.Equal(t, andrews, got.Config)
	require.True(t, testTime.At.Equal(got.CreatedAt))

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.Update(ctx, &Job{ID: "missing"}), ErrNotFound)

	jobs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestRunnerStatuses(t *testing.T) {
	table := []struct {
		name      string
		searcher  stubSearcher
		retriever stubRetriever
		status    Status
		records   int
		errorText string
	}{
		{
			name:      "completed",
			searcher:  stubSearcher{result: rrc.SearchResult{Results: twoPermits(), Pages: 1}},
			retriever: stubRetriever{outcomes: []string{"a.tif", ""}},
			status:    StatusCompleted,
			records:   2,
		},
		{
			name:      "completed with partial data",
			searcher:  stubSearcher{result: rrc.SearchResult{Results: twoPermits(), Err: errors.New("timeout")}},
			retriever: stubRetriever{outcomes: []string{"", ""}},
			status:    StatusCompleted,
			records:   2,
		},
		{
			name:     "no data",
			searcher: stubSearcher{result: rrc.SearchResult{}},
			status:   StatusCompletedWithNoData,
		},
		{
			name:      "outcome mismatch",
			searcher:  stubSearcher{result: rrc.SearchResult{Results: twoPermits()}},
			retriever: stubRetriever{outcomes: []string{""}},
			status:    StatusFailed,
			errorText: "panic: expected plat outcome count to be 2, got 1",
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			ctx := context.Background()
			store := createStore(t)
			dir := t.TempDir()
			runner := NewRunner(store, test.searcher, test.retriever, dir, telemetry.NewRecorderAPI())

			job, err := store.Create(ctx, andrews)
			require.NoError(t, err)
			runner.Run(ctx, &job)

			got, err := store.Get(ctx, job.ID)
			require.NoError(t, err)
			require.Equal(t, test.status, got.Status)
			require.Equal(t, test.records, got.Records)
			require.Equal(t, test.errorText, got.Error)

			if test.status == StatusCompleted {
				require.Equal(t, runner.ResultPath(job.ID), got.ResultFile)
				content, err := os.ReadFile(got.ResultFile)
				require.NoError(t, err)
				require.True(t, strings.HasPrefix(string(content), "API NO.,PlatLink,County,PlatFilePath\n"))
			}
		})
	}
}

func TestManagerEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)
	dir := t.TempDir()

	page, err := os.ReadFile("../scrapers/rrc/testdata/page1.html")
	require.NoError(t, err)
	empty, err := os.ReadFile("../scrapers/rrc/testdata/empty.html")
	require.NoError(t, err)

	tel := telemetry.NewRecorderAPI()
	searchLauncher := browsertest.NewLauncher(browsertest.NewSearchSite(rrc.NextPageSelector, string(page), string(empty)))
	viewerLauncher := browsertest.NewLauncher(browsertest.NewDocumentViewer(t.TempDir(), map[string][]string{
		"https://webapps2.rrc.texas.gov/neudocs/view?id=1001#page=1": {"1", "2"},
	}))

	runner := NewRunner(
		store,
		rrc.NewSearcher(searchLauncher, rrc.SearcherOptions{}, tel),
		neudocs.NewRetriever(viewerLauncher, neudocs.RetrieverOptions{Root: filepath.Join(dir, "plat_files")}, tel),
		dir,
		tel,
	)
	manager := NewManager(ctx, store, runner)

	job, err := manager.Submit(ctx, andrews)
	require.NoError(t, err)
	require.Equal(t, StatusPending, job.Status)
	manager.Wait()

	got, err := manager.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, 2, got.Records)

	content, err := os.ReadFile(got.ResultFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasSuffix(lines[0], ",PlatFilePath"))
	require.True(t, strings.HasSuffix(lines[1], "42-003-48711_2.tif"))
	// the second permit links to a document the viewer does not serve
	require.True(t, strings.HasSuffix(lines[2], ","))

	require.FileExists(t, filepath.Join(dir, "plat_files", "ANDREWS", "42-003-48711_1.tif"))
}

func TestStoreFailUnfinished(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)

	job, err := store.Create(ctx, andrews)
	require.NoError(t, err)
	affected, err := store.FailUnfinished(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.True(t, got.Status.Finished())
}
