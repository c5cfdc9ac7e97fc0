package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rrcpermits-backend/internal/aggregate"
	"rrcpermits-backend/internal/components/assert"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/scrapers/rrc"
)

const (
	report_runner_run     = "runner.run"
	report_runner_partial = "runner.partial"
	report_runner_update  = "runner.update"
	report_runner_export  = "runner.export"
	report_runner_records = "runner.records"
)

// Searcher produces the permit records of a job.
//
// note: fault injection point
type Searcher interface {
	Search(ctx context.Context, cfg rrc.SearchConfig) rrc.SearchResult
}

// Retriever produces one plat file outcome per record.
//
// note: fault injection point
type Retriever interface {
	Retrieve(ctx context.Context, records []rrc.Record) []string
}

// Runner takes a job from pending to a finished status.
type Runner struct {
	store     Store
	searcher  Searcher
	retriever Retriever
	dataDir   string
	tel       telemetry.API
}

func NewRunner(store Store, searcher Searcher, retriever Retriever, dataDir string, tel telemetry.API) Runner {
	assert.NotNil(searcher, "searcher")
	assert.NotNil(retriever, "retriever")
	assert.NotEmptyStr(dataDir, "data dir")
	return Runner{
		store:     store,
		searcher:  searcher,
		retriever: retriever,
		dataDir:   dataDir,
		tel:       tel,
	}
}

// ResultPath is where the export of a job is written.
func (r Runner) ResultPath(jobId string) string {
	return filepath.Join(r.dataDir, fmt.Sprintf("%s_permits.csv", jobId))
}

func (r Runner) update(ctx context.Context, job *Job) {
	// status updates must land even when the job was cancelled
	err := r.store.Update(context.WithoutCancel(ctx), job)
	if err != nil {
		r.tel.ReportBroken(report_runner_update, err, job.ID)
	}
}

func (r Runner) fail(ctx context.Context, job *Job, err error) {
	job.Status = StatusFailed
	job.Error = err.Error()
	r.tel.ReportBroken(report_runner_run, err, job.ID)
	r.update(ctx, job)
}

// Run executes `job`, every outcome including a panic is recorded on the job.
func (r Runner) Run(ctx context.Context, job *Job) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		r.fail(ctx, job, fmt.Errorf("panic: %v", recovered))
	}()

	job.Status = StatusRunning
	r.update(ctx, job)

	res := r.searcher.Search(ctx, job.Config)
	if res.Err != nil {
		r.tel.ReportWarning(report_runner_partial, res.Err, job.ID, res.Results.Len())
	}
	if res.Results.Len() == 0 {
		job.Status = StatusCompletedWithNoData
		r.update(ctx, job)
		return
	}

	outcomes := r.retriever.Retrieve(ctx, res.Results.Records)
	table := aggregate.Attach(res.Results, outcomes)

	path := r.ResultPath(job.ID)
	err := r.export(path, table)
	if err != nil {
		r.tel.ReportBroken(report_runner_export, err, path)
		r.fail(ctx, job, err)
		return
	}

	r.tel.ReportCount(report_runner_records, int64(table.Len()))
	job.Status = StatusCompleted
	job.ResultFile = path
	job.Records = table.Len()
	r.update(ctx, job)
}

func (r Runner) export(path string, table aggregate.Table) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	err = table.WriteCSV(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("export: %w", err)
	}
	return f.Close()
}

// Manager submits jobs and runs each on its own goroutine.
type Manager struct {
	ctx    context.Context
	store  Store
	runner Runner
	wg     sync.WaitGroup
}

// NewManager creates a manager whose jobs run under `ctx`.
func NewManager(ctx context.Context, store Store, runner Runner) *Manager {
	return &Manager{
		ctx:    ctx,
		store:  store,
		runner: runner,
	}
}

// Submit registers a pending job and starts it in the background.
func (m *Manager) Submit(ctx context.Context, cfg rrc.SearchConfig) (Job, error) {
	job, err := m.store.Create(ctx, cfg)
	if err != nil {
		return Job{}, err
	}
	m.wg.Add(1)
	go func(job Job) {
		defer m.wg.Done()
		m.runner.Run(m.ctx, &job)
	}(job)
	return job, nil
}

func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) List(ctx context.Context, limit int) ([]Job, error) {
	return m.store.List(ctx, limit)
}

// Wait blocks until every submitted job finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}
