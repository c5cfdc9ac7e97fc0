// Package apiclient talks to a running permit scraper service.
package apiclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/jobs"
	"rrcpermits-backend/internal/service"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	http *resty.Client
}

func NewClient(baseUrl string, tel telemetry.API) Client {
	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("accept", "application/json")
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("apiclient", tel))
	return Client{http: client}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func check(res *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if res.IsError() {
		detail := ""
		if body, ok := res.Error().(*errorResponse); ok {
			detail = body.Detail
		}
		return fmt.Errorf("%s %s: %s %s", res.Request.Method, res.Request.URL, res.Status(), detail)
	}
	return nil
}

// Submit starts a scrape with the configuration the service was started with.
func (c Client) Submit(ctx context.Context) (service.StartScrapeResponse, error) {
	var out service.StartScrapeResponse
	err := check(c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorResponse{}).
		Post("/scrape/"))
	if err != nil {
		return service.StartScrapeResponse{}, fmt.Errorf("submit: %w", err)
	}
	return out, nil
}

func (c Client) Status(ctx context.Context, jobId string) (jobs.Job, error) {
	var out jobs.Job
	err := check(c.http.R().
		SetContext(ctx).
		SetPathParam("id", jobId).
		SetResult(&out).
		SetError(&errorResponse{}).
		Get("/scrape/status/{id}"))
	if err != nil {
		return jobs.Job{}, fmt.Errorf("status: %w", err)
	}
	return out, nil
}

// Wait polls the status of a job until it finished.
func (c Client) Wait(ctx context.Context, jobId string, interval time.Duration) (jobs.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.Status(ctx, jobId)
		if err != nil {
			return jobs.Job{}, err
		}
		if job.Status.Finished() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c Client) Files(ctx context.Context) (service.ListFilesResponse, error) {
	var out service.ListFilesResponse
	err := check(c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorResponse{}).
		Get("/data/files/"))
	if err != nil {
		return service.ListFilesResponse{}, fmt.Errorf("files: %w", err)
	}
	return out, nil
}

// Download streams a data file into `w`.
func (c Client) Download(ctx context.Context, path string, w io.Writer) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/data/download/" + path)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	body := res.RawBody()
	defer body.Close()
	if res.IsError() {
		return fmt.Errorf("download %s: %s", path, res.Status())
	}
	_, err = io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}
