package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJobQueries(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer database.Close()

	qry := New(database)
	require.NoError(t, qry.CreateJob(ctx, Job{ID: "a", Status: "pending", Config: "{}", CreatedAt: 1, UpdatedAt: 1}))
	require.NoError(t, qry.CreateJob(ctx, Job{ID: "b", Status: "completed", Config: "{}", CreatedAt: 2, UpdatedAt: 2}))

	affected, err := qry.UpdateJob(ctx, UpdateJobParams{ID: "a", Status: "running", UpdatedAt: 3})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	job, err := qry.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "running", job.Status)
	require.EqualValues(t, 3, job.UpdatedAt)

	_, err = qry.GetJob(ctx, "missing")
	require.True(t, errors.Is(err, sql.ErrNoRows))

	jobs, err := qry.ListJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, "b", jobs[0].ID)

	affected, err = qry.FailUnfinishedJobs(ctx, "interrupted", 4)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)
}

func TestMakeTxDiscard(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer database.Close()

	tx, discard, _, err := NewMakeTx(database)()
	require.NoError(t, err)
	require.NoError(t, tx.CreateJob(ctx, Job{ID: "a", Status: "pending", Config: "{}"}))
	require.NoError(t, discard())

	_, err = New(database).GetJob(ctx, "a")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
