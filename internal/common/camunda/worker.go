// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"mortgage-funnel/internal/common/config"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
	"mortgage-funnel/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandlerFunc matches the Handle method of every lead worker.
type JobHandlerFunc func(client worker.JobClient, job entities.Job)

// StartWorker opens a job worker for taskType, or returns nil when the worker
// is disabled in config.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandlerFunc, obs *observability.Observability, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}

// Instrument records the active gauge and job duration around handler. obs
// may be nil.
func Instrument(taskType string, handler JobHandlerFunc, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		start := time.Now()
		defer func() {
			elapsed := time.Since(start)
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			obs.RecordJobProcessed(context.Background(), taskType)
			obs.RecordJobDuration(context.Background(), elapsed, taskType)
		}()
		handler(client, job)
	}
}
