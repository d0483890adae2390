package camunda

import (
	"fmt"
	"time"

	"esign-workflows/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// StartJobWorker opens a job worker for one task type.
func StartJobWorker(client zbc.Client, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(handler).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(fmt.Sprintf("%s-worker", opts.TaskType)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      opts.TaskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return jobWorker
}
