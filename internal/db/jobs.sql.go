package db

import (
	"context"
)

const jobColumns = `id, status, config, result_file, error, records, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var i Job
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.Config,
		&i.ResultFile,
		&i.Error,
		&i.Records,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createJob = `insert into jobs(` + jobColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateJob(ctx context.Context, arg Job) error {
	_, err := q.db.ExecContext(ctx, createJob,
		arg.ID,
		arg.Status,
		arg.Config,
		arg.ResultFile,
		arg.Error,
		arg.Records,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getJob = `select ` + jobColumns + ` from jobs where id = ?`

func (q *Queries) GetJob(ctx context.Context, id string) (Job, error) {
	row := q.db.QueryRowContext(ctx, getJob, id)
	return scanJob(row)
}

const updateJob = `update jobs set
    status = ?,
    result_file = ?,
    error = ?,
    records = ?,
    updated_at = ?
where id = ?`

type UpdateJobParams struct {
	Status     string
	ResultFile string
	Error      string
	Records    int64
	UpdatedAt  int64
	ID         string
}

func (q *Queries) UpdateJob(ctx context.Context, arg UpdateJobParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateJob,
		arg.Status,
		arg.ResultFile,
		arg.Error,
		arg.Records,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listJobs = `select ` + jobColumns + ` from jobs order by created_at desc, id limit ?`

func (q *Queries) ListJobs(ctx context.Context, limit int64) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, listJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Job
	for rows.Next() {
		i, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const failRunningJobs = `update jobs set status = 'failed', error = ?, updated_at = ?
where status in ('pending', 'running')`

// FailUnfinishedJobs marks jobs left pending or running by a previous process as failed.
func (q *Queries) FailUnfinishedJobs(ctx context.Context, message string, updatedAt int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, failRunningJobs, message, updatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
