// Package jobs tracks scrape jobs and runs them in the background.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rrcpermits-backend/internal/components/chrono"
	"rrcpermits-backend/internal/db"
	"rrcpermits-backend/internal/scrapers/rrc"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending             Status = "pending"
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithNoData Status = "completed_with_no_data"
	StatusFailed              Status = "failed"
)

func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusCompletedWithNoData || s == StatusFailed
}

var ErrNotFound = errors.New("job not found")

type Job struct {
	ID         string           `json:"job_id"`
	Status     Status           `json:"status"`
	Config     rrc.SearchConfig `json:"config"`
	ResultFile string           `json:"result_file,omitempty"`
	Records    int              `json:"records"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Store persists jobs in sqlite.
type Store struct {
	qry  *db.Queries
	time chrono.API
}

func NewStore(database *sql.DB, time chrono.API) Store {
	return Store{
		qry:  db.New(database),
		time: time,
	}
}

func fromRow(row db.Job) (Job, error) {
	var cfg rrc.SearchConfig
	err := json.Unmarshal([]byte(row.Config), &cfg)
	if err != nil {
		return Job{}, fmt.Errorf("decode config of job %s: %w", row.ID, err)
	}
	return Job{
		ID:         row.ID,
		Status:     Status(row.Status),
		Config:     cfg,
		ResultFile: row.ResultFile,
		Records:    int(row.Records),
		Error:      row.Error,
		CreatedAt:  time.UnixMilli(row.CreatedAt),
		UpdatedAt:  time.UnixMilli(row.UpdatedAt),
	}, nil
}

// Create registers a new pending job for `cfg`.
func (s Store) Create(ctx context.Context, cfg rrc.SearchConfig) (Job, error) {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	now := s.time.Now()
	job := Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.qry.CreateJob(ctx, db.Job{
		ID:        job.ID,
		Status:    string(job.Status),
		Config:    string(encoded),
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	})
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (s Store) Get(ctx context.Context, id string) (Job, error) {
	row, err := s.qry.GetJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return fromRow(row)
}

// Update persists the mutable fields of `job` and bumps its UpdatedAt.
func (s Store) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = s.time.Now()
	affected, err := s.qry.UpdateJob(ctx, db.UpdateJobParams{
		ID:         job.ID,
		Status:     string(job.Status),
		ResultFile: job.ResultFile,
		Error:      job.Error,
		Records:    int64(job.Records),
		UpdatedAt:  job.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the most recent jobs first.
func (s Store) List(ctx context.Context, limit int) ([]Job, error) {
	rows, err := s.qry.ListJobs(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]Job, 0, len(rows))
	for _, row := range rows {
		job, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

// FailUnfinished marks jobs interrupted by a restart as failed.
func (s Store) FailUnfinished(ctx context.Context) (int64, error) {
	return s.qry.FailUnfinishedJobs(ctx, "interrupted by service restart", s.time.Now().UnixMilli())
}
