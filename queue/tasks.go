// Package queue owns the durable task queues decoupling alert scans,
// notification emails, and search-index writes from each other and from the
// request path. Each queue fails in isolation: a broken mailer never blocks
// index writes.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jobdeck/alerts.api/search"
)

const (
	QueueScan  = "scan"
	QueueEmail = "email"
	QueueIndex = "index"
)

const (
	TypeAlertScan   = "alert:scan"
	TypeAlertNotify = "alert:notify"
	TypeJobIndex    = "job:index"
	TypeJobUpdate   = "job:update"
	TypeJobDelete   = "job:delete"
)

const (
	maxRetries    = 5
	taskTimeout   = 2 * time.Minute
	taskRetention = 24 * time.Hour
)

type ScanPayload struct {
	AlertID int64 `json:"alertId"`
}

type NotifyPayload struct {
	AlertID       int64     `json:"alertId"`
	MatchIDs      []int64   `json:"matchIds"`
	ScanStartedAt time.Time `json:"scanStartedAt"`
}

type IndexPayload struct {
	Job search.Job `json:"job"`
}

type UpdatePayload struct {
	JobID  int64          `json:"jobId"`
	Fields map[string]any `json:"fields"`
}

type DeletePayload struct {
	JobID int64 `json:"jobId"`
}

// Client enqueues tasks. It satisfies matching.Enqueuer.
type Client struct {
	client *asynq.Client
}

func NewClient(opt asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(opt)}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, queue string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", taskType, err)
	}

	task := asynq.NewTask(taskType, raw)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.MaxRetry(maxRetries),
		asynq.Timeout(taskTimeout),
		asynq.Retention(taskRetention),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	return nil
}

func (c *Client) EnqueueScan(ctx context.Context, alertID int64) error {
	return c.enqueue(ctx, TypeAlertScan, ScanPayload{AlertID: alertID}, QueueScan)
}

func (c *Client) EnqueueNotification(ctx context.Context, alertID int64, matchIDs []int64, scanStartedAt time.Time) error {
	return c.enqueue(ctx, TypeAlertNotify, NotifyPayload{
		AlertID:       alertID,
		MatchIDs:      matchIDs,
		ScanStartedAt: scanStartedAt,
	}, QueueEmail)
}

func (c *Client) EnqueueIndex(ctx context.Context, job search.Job) error {
	return c.enqueue(ctx, TypeJobIndex, IndexPayload{Job: job}, QueueIndex)
}

func (c *Client) EnqueueIndexUpdate(ctx context.Context, jobID int64, fields map[string]any) error {
	return c.enqueue(ctx, TypeJobUpdate, UpdatePayload{JobID: jobID, Fields: fields}, QueueIndex)
}

func (c *Client) EnqueueIndexDelete(ctx context.Context, jobID int64) error {
	return c.enqueue(ctx, TypeJobDelete, DeletePayload{JobID: jobID}, QueueIndex)
}
