// Package matching decides, per alert and per cycle, which jobs to notify
// about, and drives the dedup ledger and delivery queue.
package matching

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/search"
)

// DefaultMatchLimit bounds how many matches one cycle may deliver, to keep
// email size sane. Capped-out jobs are re-found on the next cycle because
// the watermark only advances to the scan start, and the ledger admits them
// then.
const DefaultMatchLimit = 50

// DefaultMatchScore stands in for relevance when no search text was given
// and results are date-ordered, so the email can still rank uniformly.
const DefaultMatchScore = 1.0

type Searcher interface {
	SearchForAlert(ctx context.Context, queryText, filterExpr string, lastSentAt *time.Time, limit int) (*search.Result, error)
}

// Candidate is one qualifying job found by a scan, before the ledger has
// decided whether it was already delivered.
type Candidate struct {
	JobID    int64
	Title    string
	Company  string
	Location string
	Score    float64
}

type ScanResult struct {
	// Skipped is set when the alert was inactive or paused; distinct from
	// zero candidates, which still advances the watermark.
	Skipped    bool
	Candidates []Candidate
}

// Engine runs the search side of an alert cycle.
type Engine struct {
	searcher Searcher
	limit    int
}

func NewEngine(searcher Searcher, limit int) *Engine {
	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	return &Engine{searcher: searcher, limit: limit}
}

// BuildFilters translates the alert's stored criteria into a filter
// expression. Skills are a requirement set (all must match); job types and
// experience levels are alternatives.
func (e *Engine) BuildFilters(alert data.JobAlert) string {
	return search.NewFilterBuilder().
		AddLocationFilters(search.Location{City: alert.City, State: alert.State}, alert.IncludeRemote).
		AddSkillFilters(alert.Skills, true).
		AddArrayFilter(search.FieldJobType, alert.JobTypes).
		AddArrayFilter(search.FieldExperience, alert.ExperienceLevels).
		Build()
}

// Scan finds this cycle's candidate set. Active/closed status and the
// watermark bound are enforced inside the search call, so no post-filtering
// happens here.
func (e *Engine) Scan(ctx context.Context, alert data.JobAlert) (*ScanResult, error) {
	if !alert.IsActive || alert.IsPaused {
		return &ScanResult{Skipped: true}, nil
	}

	res, err := e.searcher.SearchForAlert(ctx, alert.SearchQuery, e.BuildFilters(alert), alert.LastSentAt, e.limit)
	if err != nil {
		return nil, errors.Wrap(err, "scan alert: search")
	}

	relevanceRanked := strings.TrimSpace(alert.SearchQuery) != ""
	candidates := make([]Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		score := DefaultMatchScore
		if relevanceRanked {
			score = hit.Score
		}
		candidates = append(candidates, Candidate{
			JobID:    hit.JobID,
			Title:    hit.Doc.Title,
			Company:  hit.Doc.Company,
			Location: hit.Doc.Location(),
			Score:    score,
		})
	}

	return &ScanResult{Candidates: candidates}, nil
}
