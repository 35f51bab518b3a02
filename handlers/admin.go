package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/jobdeck/alerts.api/config"
	"github.com/jobdeck/alerts.api/data/repos"
	"github.com/jobdeck/alerts.api/queue"
)

// AdminHandler exposes the ops-only surface: manual scan triggers and queue
// obliteration. Gated by the admin API key, not by user auth.
type AdminHandler struct {
	alerts   *repos.AlertRepo
	client   *queue.Client
	redisOpt asynq.RedisClientOpt
}

func NewAdminHandler(alerts *repos.AlertRepo, client *queue.Client, redisOpt asynq.RedisClientOpt) *AdminHandler {
	return &AdminHandler{
		alerts:   alerts,
		client:   client,
		redisOpt: redisOpt,
	}
}

func (h *AdminHandler) Authorize(r *http.Request) Result {
	key := r.Header.Get("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(config.Config.AdminAPIKey)) != 1 {
		return Forbidden("Invalid admin key.")
	}

	return Ok(nil)
}

// TriggerScan enqueues one scan cycle for an alert outside its cadence.
func (h *AdminHandler) TriggerScan(w http.ResponseWriter, r *http.Request) Result {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return BadRequest("Invalid alert ID.")
	}

	alert, err := h.alerts.GetAlert(id)
	if err != nil {
		return InternalError(err, "trigger scan: get alert: ")
	}
	if alert == nil {
		return NotFound("Alert not found.")
	}

	if err := h.client.EnqueueScan(r.Context(), id); err != nil {
		return InternalError(err, "trigger scan: enqueue: ")
	}

	return Accepted()
}

// ObliterateQueue drops a queue and every task in it, including in-flight
// ones. There is no undo.
func (h *AdminHandler) ObliterateQueue(w http.ResponseWriter, r *http.Request) Result {
	name := r.PathValue("name")
	switch name {
	case queue.QueueScan, queue.QueueEmail, queue.QueueIndex:
	default:
		return BadRequest("Unknown queue: " + name)
	}

	if err := queue.ObliterateQueue(h.redisOpt, name); err != nil {
		return InternalError(err, "obliterate queue: ")
	}

	return Ok(nil)
}
