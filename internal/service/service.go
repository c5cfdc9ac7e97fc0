// Package service exposes scrape job submission and the scraped data over http.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"rrcpermits-backend/internal/components/assert"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/config"
	"rrcpermits-backend/internal/jobs"
	"rrcpermits-backend/internal/scrapers/rrc"
)

const (
	report_service_load_config = "service.load-config"
	report_service_submit      = "service.submit"
	report_service_get_job     = "service.get-job"
	report_service_list_files  = "service.list-files"
	report_service_encode      = "service.encode"
)

// JobsAPI submits and looks up scrape jobs.
//
// note: fault injection point
type JobsAPI interface {
	Submit(ctx context.Context, cfg rrc.SearchConfig) (jobs.Job, error)
	Get(ctx context.Context, id string) (jobs.Job, error)
	List(ctx context.Context, limit int) ([]jobs.Job, error)
}

// LoadConfig reads the scrape configuration, it is called for every submitted job.
type LoadConfig = func() (config.Config, error)

type Service struct {
	jobs       JobsAPI
	loadConfig LoadConfig
	dataDir    string
	tel        telemetry.API
}

func NewService(jobsAPI JobsAPI, loadConfig LoadConfig, dataDir string, tel telemetry.API) Service {
	assert.NotNil(jobsAPI, "jobs")
	assert.NotNil(loadConfig, "loadConfig")
	assert.NotEmptyStr(dataDir, "data dir")
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return Service{
		jobs:       jobsAPI,
		loadConfig: loadConfig,
		dataDir:    dataDir,
		tel:        telemetry.NewScopedAPI("service", tel),
	}
}

// Handler routes every endpoint of the service.
func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.health)
	mux.HandleFunc("POST /scrape/{$}", s.startScrape)
	mux.HandleFunc("GET /scrape/status/{id}", s.jobStatus)
	mux.HandleFunc("GET /scrape/jobs/{$}", s.listJobs)
	mux.HandleFunc("GET /data/files/{$}", s.listFiles)
	mux.HandleFunc("GET /data/download/{path...}", s.download)
	return mux
}

func (s Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportWarning(report_service_encode, err)
	}
}

func (s Service) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func (s Service) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "Texas Permit Scraper Agent is running",
	})
}

type StartScrapeResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

func (s Service) startScrape(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.loadConfig()
	if errors.Is(err, os.ErrNotExist) {
		s.tel.ReportBroken(report_service_load_config, err)
		s.writeError(w, http.StatusInternalServerError, "Configuration file not found.")
		return
	}
	if err != nil {
		s.tel.ReportBroken(report_service_load_config, err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error parsing config: %v", err))
		return
	}
	err = cfg.Validate()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.jobs.Submit(r.Context(), cfg.SearchConfig())
	if err != nil {
		s.tel.ReportBroken(report_service_submit, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to submit job.")
		return
	}
	s.writeJSON(w, http.StatusAccepted, StartScrapeResponse{
		Message: "Scraping job started using config.yaml.",
		JobID:   job.ID,
	})
}

func (s Service) jobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		s.tel.ReportBroken(report_service_get_job, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to read job.")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s Service) listJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.jobs.List(r.Context(), 50)
	if err != nil {
		s.tel.ReportBroken(report_service_get_job, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to list jobs.")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]jobs.Job{"jobs": list})
}

type ListFilesResponse struct {
	Files   []string `json:"files,omitempty"`
	Message string   `json:"message,omitempty"`
}

func (s Service) listFiles(w http.ResponseWriter, r *http.Request) {
	_, err := os.Stat(s.dataDir)
	if errors.Is(err, os.ErrNotExist) {
		s.writeJSON(w, http.StatusOK, ListFilesResponse{Message: "Data directory not found."})
		return
	}

	files := []string{}
	err = filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dataDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		s.tel.ReportBroken(report_service_list_files, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to list files.")
		return
	}
	slices.Sort(files)
	s.writeJSON(w, http.StatusOK, ListFilesResponse{Files: files})
}

// resolveDataPath maps a request path onto the data directory, paths that
// escape it are rejected.
func (s Service) resolveDataPath(requested string) (string, bool) {
	full := filepath.Join(s.dataDir, filepath.FromSlash(requested))
	rel, err := filepath.Rel(s.dataDir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (s Service) download(w http.ResponseWriter, r *http.Request) {
	full, ok := s.resolveDataPath(r.PathValue("path"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(full)))
	http.ServeFile(w, r, full)
}
