package apiclient

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/jobs"

	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scrape/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message": "started", "job_id": "abc"}`))
	})
	mux.HandleFunc("GET /scrape/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		if r.PathValue("id") != "abc" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "Job not found"}`))
			return
		}
		polls++
		status := "running"
		if polls >= 2 {
			status = "completed"
		}
		w.Write([]byte(`{"job_id": "abc", "status": "` + status + `", "records": 3}`))
	})
	mux.HandleFunc("GET /data/download/{path...}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("csv:" + r.PathValue("path")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	tel := telemetry.NewRecorderAPI()
	client := NewClient(server.URL, tel)

	started, err := client.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc", started.JobID)

	job, err := client.Wait(ctx, "abc", time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, jobs.StatusCompleted, job.Status)
	require.Equal(t, 3, job.Records)

	_, err = client.Status(ctx, "nope")
	require.ErrorContains(t, err, "Job not found")

	var buf bytes.Buffer
	require.NoError(t, client.Download(ctx, "abc_permits.csv", &buf))
	require.Equal(t, "csv:abc_permits.csv", buf.String())

	require.NotEmpty(t, tel.Find(telemetry.SEVERITY_DEBUG, "resty.request"))
}
