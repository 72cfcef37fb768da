package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaforge/internal/credit"
	"mediaforge/internal/domain"
	"mediaforge/internal/engine"
	"mediaforge/internal/infra"
)

const (
	defaultPollInterval      = 5 * time.Second
	defaultPollErrorInterval = 10 * time.Second
	defaultProgressStep      = 7
	progressCap              = 95
	archiveTimeout           = 5 * time.Second
)

// Backend is the remote generation service: one creation call, one status
// call. engine.Client is the production implementation.
type Backend interface {
	Submit(ctx context.Context, req engine.JobRequest) (string, error)
	Status(ctx context.Context, jobID string) (engine.StatusReport, error)
}

// Archiver receives terminal task outcomes for durable history. Optional.
type Archiver interface {
	RecordTerminal(ctx context.Context, task domain.GenerationTask) error
}

// TaskRequest describes one generation unit to orchestrate. Cost arrives
// from the pricing catalog upstream; Funding defaults to credits.
type TaskRequest struct {
	Spec    domain.CreativeSpec
	Engine  domain.EngineConfig
	Cost    int
	Funding domain.FundingMode
}

// Options wires an Orchestrator's collaborators.
type Options struct {
	Backend           Backend
	Ledger            *credit.Ledger
	Store             *Store
	Logger            infra.Logger
	Archive           Archiver
	ProjectID         string
	PollInterval      time.Duration
	PollErrorInterval time.Duration
	ProgressStep      int
}

// Orchestrator drives generation tasks from submission through polling to a
// terminal state, debiting the ledger on accepted submissions and refunding
// it exactly once on terminal failure. Submission and poll errors are
// absorbed into task state; only preflight validation surfaces as an error.
type Orchestrator struct {
	backend           Backend
	ledger            *credit.Ledger
	store             *Store
	logger            infra.Logger
	archive           Archiver
	projectID         string
	pollInterval      time.Duration
	pollErrorInterval time.Duration
	progressStep      int
}

// New constructs an orchestrator, filling in reference cadences where the
// options leave them zero.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		backend:           opts.Backend,
		ledger:            opts.Ledger,
		store:             opts.Store,
		logger:            opts.Logger,
		archive:           opts.Archive,
		projectID:         opts.ProjectID,
		pollInterval:      opts.PollInterval,
		pollErrorInterval: opts.PollErrorInterval,
		progressStep:      opts.ProgressStep,
	}
	if o.store == nil {
		o.store = NewStore()
	}
	if o.pollInterval <= 0 {
		o.pollInterval = defaultPollInterval
	}
	if o.pollErrorInterval <= 0 {
		o.pollErrorInterval = defaultPollErrorInterval
	}
	if o.progressStep <= 0 {
		o.progressStep = defaultProgressStep
	}
	return o
}

// Store exposes the result store for read-side consumers.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Submit orchestrates a single generation unit. The returned task reflects
// the submission outcome: SYNTHESIZING when accepted (polling continues in
// the background) or FAILED when the backend rejected it. The only error
// conditions are local preflight failures, which create no task.
func (o *Orchestrator) Submit(ctx context.Context, req TaskRequest) (domain.GenerationTask, error) {
	req = withDefaults(req)
	if req.Funding == domain.FundingCredits && !o.ledger.Affordable(req.Cost) {
		return domain.GenerationTask{}, domain.ErrInsufficientCredits
	}
	task, pollCtx := o.createTask(req)
	o.submitTask(ctx, pollCtx, task.ID)
	snapshot, _ := o.store.Get(task.ID)
	return snapshot, nil
}

// SubmitBatch expands one user action into independent tasks, one per
// request. A single preflight checks the summed credit cost before anything
// is created. Submissions run concurrently and the call returns once every
// submission has been acknowledged; each task's polling outlives it.
func (o *Orchestrator) SubmitBatch(ctx context.Context, reqs []TaskRequest) ([]domain.GenerationTask, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	total := 0
	for i, req := range reqs {
		reqs[i] = withDefaults(req)
		if reqs[i].Funding == domain.FundingCredits {
			total += reqs[i].Cost
		}
	}
	if total > 0 && !o.ledger.Affordable(total) {
		return nil, domain.ErrInsufficientCredits
	}

	ids := make([]string, len(reqs))
	ctxs := make([]context.Context, len(reqs))
	for i, req := range reqs {
		task, pollCtx := o.createTask(req)
		ids[i] = task.ID
		ctxs[i] = pollCtx
	}

	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o.submitTask(ctx, ctxs[i], ids[i])
		}(i)
	}
	wg.Wait()

	out := make([]domain.GenerationTask, 0, len(ids))
	for _, id := range ids {
		if snapshot, ok := o.store.Get(id); ok {
			out = append(out, snapshot)
		}
	}
	return out, nil
}

// Retry resubmits a failed task with its original spec, references and cost.
// Progress and the refund marker are reset, making the task independently
// eligible for one future refund if it fails again.
func (o *Orchestrator) Retry(ctx context.Context, id string) (domain.GenerationTask, error) {
	snapshot, ok := o.store.Get(id)
	if !ok {
		return domain.GenerationTask{}, domain.ErrTaskNotFound
	}
	if snapshot.Status != domain.TaskStatusFailed {
		return domain.GenerationTask{}, domain.ErrTaskNotRetryable
	}
	if snapshot.CreditFunded() && !o.ledger.Affordable(snapshot.Cost) {
		return domain.GenerationTask{}, domain.ErrInsufficientCredits
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	if !o.store.ReplaceCancel(id, cancel) {
		cancel()
		return domain.GenerationTask{}, domain.ErrTaskNotFound
	}
	o.store.Apply(id, func(t *domain.GenerationTask) {
		t.Status = domain.TaskStatusQueued
		t.RemoteJobID = ""
		t.ResultURL = ""
		t.Progress = 0
		t.Refunded = false
	})
	o.submitTask(ctx, pollCtx, id)
	result, _ := o.store.Get(id)
	return result, nil
}

// Delete removes a task and cancels its polling loop.
func (o *Orchestrator) Delete(id string) error {
	if !o.store.Delete(id) {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Shutdown cancels every polling loop. In-memory state is discarded with the
// process; the archive already holds everything terminal.
func (o *Orchestrator) Shutdown() {
	o.store.CancelAll()
}

func withDefaults(req TaskRequest) TaskRequest {
	if req.Funding == "" {
		req.Funding = domain.FundingCredits
	}
	return req
}

func (o *Orchestrator) createTask(req TaskRequest) (*domain.GenerationTask, context.Context) {
	task := &domain.GenerationTask{
		ID:        uuid.NewString(),
		Status:    domain.TaskStatusQueued,
		Spec:      req.Spec,
		Engine:    req.Engine,
		Cost:      req.Cost,
		Funding:   req.Funding,
		CreatedAt: time.Now(),
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	o.store.Add(task, cancel)
	return task, pollCtx
}

// submitTask performs the creation call for one task and, on accept, debits
// the ledger and starts the polling loop. Rejections fail the task in place:
// nothing was charged, so nothing is refunded.
func (o *Orchestrator) submitTask(ctx context.Context, pollCtx context.Context, id string) {
	snapshot, ok := o.store.Get(id)
	if !ok {
		return
	}
	payload := engine.BuildJobRequest(snapshot.Spec, snapshot.Engine, o.projectID)

	jobID, err := o.backend.Submit(ctx, payload)
	if err != nil {
		o.logger.Warn().Err(err).Str("task_id", id).Msg("orchestrator: submission rejected")
		o.failUncharged(id)
		return
	}
	if snapshot.CreditFunded() && !o.ledger.Reserve(snapshot.Cost) {
		// Balance moved between preflight and accept; the job runs remotely
		// but this task never charged, so it fails without refund.
		o.logger.Warn().Str("task_id", id).Int("cost", snapshot.Cost).
			Msg("orchestrator: balance no longer covers accepted submission")
		o.failUncharged(id)
		return
	}

	o.store.Apply(id, func(t *domain.GenerationTask) {
		t.RemoteJobID = jobID
		t.Status = domain.TaskStatusSynthesizing
	})
	o.logger.Info().Str("task_id", id).Str("job_id", jobID).Msg("orchestrator: job submitted")
	go o.poll(pollCtx, id, jobID)
}

// poll re-checks the remote job until it reaches a terminal state or the
// task is deleted. Transport errors never change task state; they reschedule
// on the longer cadence and retry without a cap.
func (o *Orchestrator) poll(ctx context.Context, id, jobID string) {
	timer := time.NewTimer(o.pollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// The timer and the cancellation can fire together; deletion wins.
		if ctx.Err() != nil {
			return
		}

		report, err := o.backend.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.logger.Debug().Err(err).Str("task_id", id).Msg("orchestrator: poll failed, backing off")
			timer.Reset(o.pollErrorInterval)
			continue
		}

		switch {
		case report.Completed():
			o.complete(id, report)
			return
		case report.Failed():
			o.fail(id)
			return
		default:
			o.store.Observe(id, func(t *domain.GenerationTask) {
				if t.Progress < progressCap {
					t.Progress = min(t.Progress+o.progressStep, progressCap)
				}
			})
			timer.Reset(o.pollInterval)
		}
	}
}

func (o *Orchestrator) complete(id string, report engine.StatusReport) {
	observed := o.store.Observe(id, func(t *domain.GenerationTask) {
		t.Status = domain.TaskStatusCompleted
		t.ResultURL = report.ResultURL
		t.Progress = 100
	})
	if !observed {
		return
	}
	o.logger.Info().Str("task_id", id).Str("result_url", report.ResultURL).Msg("orchestrator: task completed")
	o.recordTerminal(id)
}

// fail marks the task FAILED and refunds its cost exactly once when the task
// was credit-funded. The refund marker flips inside the store's critical
// section, so concurrent terminal observations cannot double-credit.
func (o *Orchestrator) fail(id string) {
	refund := 0
	observed := o.store.Observe(id, func(t *domain.GenerationTask) {
		t.Status = domain.TaskStatusFailed
		if t.CreditFunded() && !t.Refunded {
			t.Refunded = true
			refund = t.Cost
		}
	})
	if !observed {
		return
	}
	if refund > 0 {
		o.ledger.Credit(refund)
	}
	o.logger.Info().Str("task_id", id).Int("refund", refund).Msg("orchestrator: task failed")
	o.recordTerminal(id)
}

// failUncharged handles submission-time failures: the task goes FAILED with
// the refund marker untouched because no debit ever happened.
func (o *Orchestrator) failUncharged(id string) {
	o.store.Apply(id, func(t *domain.GenerationTask) {
		t.Status = domain.TaskStatusFailed
	})
	o.recordTerminal(id)
}

func (o *Orchestrator) recordTerminal(id string) {
	if o.archive == nil {
		return
	}
	snapshot, ok := o.store.Get(id)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := o.archive.RecordTerminal(ctx, snapshot); err != nil {
		o.logger.Error().Err(err).Str("task_id", id).Msg("orchestrator: archive write failed")
	}
}
