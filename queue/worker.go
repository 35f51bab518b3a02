package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/jobdeck/alerts.api/matching"
	"github.com/jobdeck/alerts.api/metrics"
	"github.com/jobdeck/alerts.api/search"
)

// Worker consumes the scan, email, and index queues. Retries use asynq's
// exponential backoff; a task that exhausts its budget stays in the dead
// queue for operator inspection instead of reaching the alert owner.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewWorker(opt asynq.RedisClientOpt, concurrency int, pipeline *matching.Pipeline, index *search.Index) *Worker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueScan:  2,
			QueueEmail: 2,
			QueueIndex: 2,
		},
		Logger: slogAdapter{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			slog.Error("task failed", "type", task.Type(), "error", err)
		}),
	})

	w := &Worker{srv: srv, mux: asynq.NewServeMux()}
	w.mux.HandleFunc(TypeAlertScan, scanHandler(pipeline))
	w.mux.HandleFunc(TypeAlertNotify, notifyHandler(pipeline))
	w.mux.HandleFunc(TypeJobIndex, indexHandler(index))
	w.mux.HandleFunc(TypeJobUpdate, updateHandler(index))
	w.mux.HandleFunc(TypeJobDelete, deleteHandler(index))
	return w
}

func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// ObliterateQueue deletes a queue and everything in it. Ops and test use
// only; nothing on the request path calls this.
func ObliterateQueue(opt asynq.RedisClientOpt, name string) error {
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if err := inspector.DeleteQueue(name, true); err != nil {
		return fmt.Errorf("obliterate queue %s: %w", name, err)
	}

	return nil
}

func scanHandler(pipeline *matching.Pipeline) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ScanPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal scan payload: %v: %w", err, asynq.SkipRetry)
		}

		return pipeline.RunCycle(ctx, p.AlertID)
	}
}

func notifyHandler(pipeline *matching.Pipeline) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p NotifyPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal notify payload: %v: %w", err, asynq.SkipRetry)
		}

		return pipeline.DeliverNotification(ctx, p.AlertID, p.MatchIDs, p.ScanStartedAt)
	}
}

func indexHandler(index *search.Index) asynq.HandlerFunc {
	return func(_ context.Context, task *asynq.Task) error {
		var p IndexPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal index payload: %v: %w", err, asynq.SkipRetry)
		}

		if err := index.IndexDocument(search.NewDocument(p.Job)); err != nil {
			metrics.IndexWriteFailures.Inc()
			return err
		}
		metrics.IndexWrites.Inc()
		return nil
	}
}

func updateHandler(index *search.Index) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p UpdatePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal update payload: %v: %w", err, asynq.SkipRetry)
		}

		err := index.UpdateByID(ctx, p.JobID, p.Fields)
		if err != nil {
			if errors.Is(err, search.ErrDocumentNotFound) {
				// The document never made it into the index; nothing to
				// patch, and retrying will not create it.
				slog.Warn("update for unindexed job", "jobID", p.JobID)
				return nil
			}
			metrics.IndexWriteFailures.Inc()
			return err
		}
		metrics.IndexWrites.Inc()
		return nil
	}
}

func deleteHandler(index *search.Index) asynq.HandlerFunc {
	return func(_ context.Context, task *asynq.Task) error {
		var p DeletePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal delete payload: %v: %w", err, asynq.SkipRetry)
		}

		if err := index.DeleteByID(p.JobID); err != nil {
			metrics.IndexWriteFailures.Inc()
			return err
		}
		metrics.IndexWrites.Inc()
		return nil
	}
}

// slogAdapter bridges asynq's logger interface onto the process logger.
type slogAdapter struct{}

func (slogAdapter) Debug(args ...interface{}) { slog.Debug(fmt.Sprint(args...)) }
func (slogAdapter) Info(args ...interface{})  { slog.Info(fmt.Sprint(args...)) }
func (slogAdapter) Warn(args ...interface{})  { slog.Warn(fmt.Sprint(args...)) }
func (slogAdapter) Error(args ...interface{}) { slog.Error(fmt.Sprint(args...)) }
func (slogAdapter) Fatal(args ...interface{}) { slog.Error(fmt.Sprint(args...)) }
