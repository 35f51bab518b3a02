package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jobdeck/alerts.api/enums"
	"github.com/jobdeck/alerts.api/models"
	"github.com/jobdeck/alerts.api/queue"
	"github.com/jobdeck/alerts.api/search"
)

// JobHandler is the index-facing edge: writes go through the index queue so
// the job board's request path never blocks on bleve, reads hit the index
// directly.
type JobHandler struct {
	client *queue.Client
	index  *search.Index
}

func NewJobHandler(client *queue.Client, index *search.Index) *JobHandler {
	return &JobHandler{client: client, index: index}
}

func (h *JobHandler) IndexJob(w http.ResponseWriter, r *http.Request) Result {
	var req models.IndexJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	if req.ID <= 0 {
		return BadRequest("Job ID is required.")
	}
	if req.Title == "" {
		return BadRequest("Title is required.")
	}

	if err := h.client.EnqueueIndex(r.Context(), req.ToJob()); err != nil {
		return InternalError(err, "enqueue index: ")
	}

	return Accepted()
}

func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) Result {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return BadRequest("Invalid job ID.")
	}

	var req models.UpdateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}
	if len(req.Fields) == 0 {
		return BadRequest("No fields to update.")
	}

	if err := h.client.EnqueueIndexUpdate(r.Context(), id, req.Fields); err != nil {
		return InternalError(err, "enqueue index update: ")
	}

	return Accepted()
}

func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) Result {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return BadRequest("Invalid job ID.")
	}

	if err := h.client.EnqueueIndexDelete(r.Context(), id); err != nil {
		return InternalError(err, "enqueue index delete: ")
	}

	return Accepted()
}

func (h *JobHandler) SearchJobs(w http.ResponseWriter, r *http.Request) Result {
	q := r.URL.Query()

	opts := search.SearchOptions{
		SortBy: enums.SortBy(q.Get("sortBy")),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 0),
	}
	if q.Get("sortDir") == "asc" {
		opts.SortDirection = search.SortAsc
	} else if q.Get("sortDir") == "desc" {
		opts.SortDirection = search.SortDesc
	}

	res, err := h.index.Search(r.Context(), q.Get("q"), q.Get("filter"), opts)
	if err != nil {
		return BadRequest("Invalid search query.")
	}

	type jobResult struct {
		Job   search.JobDocument `json:"job"`
		Score float64            `json:"score"`
	}
	out := struct {
		Jobs  []jobResult `json:"jobs"`
		Total uint64      `json:"total"`
	}{Jobs: make([]jobResult, 0, len(res.Hits)), Total: res.Total}

	for _, hit := range res.Hits {
		out.Jobs = append(out.Jobs, jobResult{Job: hit.Doc, Score: hit.Score})
	}

	return Ok(out)
}
