package camunda

import (
	"context"
	"time"

	apperrors "session-handlers/internal/common/errors"
	"session-handlers/internal/common/logger"
	"session-handlers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobRecorder receives the outcome of every job run.
type JobRecorder interface {
	RecordJob(ctx context.Context, job string, duration time.Duration, err error)
}

// Runner adapts a registry job to the Zeebe handler signature. A successful
// run completes the job with the result as variables; a failed run fails the
// job without retries.
type Runner struct {
	name     string
	job      registry.Job
	timeout  time.Duration
	recorder JobRecorder
	errors   *apperrors.JobErrorHandler
	logger   logger.Logger
}

func NewRunner(name string, job registry.Job, timeout time.Duration, recorder JobRecorder, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"handler": name})
	return &Runner{
		name:     name,
		job:      job,
		timeout:  timeout,
		recorder: recorder,
		errors:   apperrors.NewJobErrorHandler(log),
		logger:   log,
	}
}

// Handle satisfies worker.JobHandler.
func (r *Runner) Handle(client worker.JobClient, job entities.Job) {
	ctx := context.Background()
	log := r.logger.WithFields(map[string]interface{}{"jobKey": job.Key})

	result, err := r.run(ctx)
	if err != nil {
		r.errors.HandleJobError(ctx, client, job, err)
		return
	}

	step := client.NewCompleteJobCommand().JobKey(job.Key)
	var cmd interface {
		Send(context.Context) (*pb.CompleteJobResponse, error)
	} = step
	if result != nil {
		if cmd, err = step.VariablesFromObject(result); err != nil {
			r.errors.HandleJobError(ctx, client, job, err)
			return
		}
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("complete job failed", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Info("job completed", nil)
}

func (r *Runner) run(ctx context.Context) (interface{}, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	started := time.Now()
	result, err := r.job(ctx)
	if r.recorder != nil {
		r.recorder.RecordJob(ctx, r.name, time.Since(started), err)
	}
	return result, err
}

// Worker is an open job subscription.
type Worker struct {
	worker   worker.JobWorker
	taskType string
	logger   logger.Logger
}

// StartWorker subscribes handler to taskType. timeout is the lock the broker
// grants each activated job.
func StartWorker(client zbc.Client, taskType string, maxJobsActive int, timeout time.Duration, handler worker.JobHandler, log logger.Logger) *Worker {
	if maxJobsActive <= 0 {
		maxJobsActive = 1
	}
	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(maxJobsActive).
		Timeout(timeout).
		Name(taskType).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": maxJobsActive,
	})
	return &Worker{worker: jw, taskType: taskType, logger: log}
}

func (w *Worker) Stop() {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
}
