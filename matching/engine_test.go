package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/search"
)

type fakeSearcher struct {
	gotQuery    string
	gotFilter   string
	gotLastSent *time.Time
	gotLimit    int
	result      *search.Result
	err         error
}

func (f *fakeSearcher) SearchForAlert(_ context.Context, queryText, filterExpr string, lastSentAt *time.Time, limit int) (*search.Result, error) {
	f.gotQuery = queryText
	f.gotFilter = filterExpr
	f.gotLastSent = lastSentAt
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &search.Result{}, nil
	}
	return f.result, nil
}

func activeAlert() data.JobAlert {
	return data.JobAlert{
		ID:       7,
		Name:     "Go jobs",
		IsActive: true,
	}
}

func TestScan_SkipsPausedAlert(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := NewEngine(searcher, 50)

	alert := activeAlert()
	alert.IsPaused = true

	res, err := engine.Scan(context.Background(), alert)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, searcher.gotLimit, "search must not run for a paused alert")
}

func TestScan_SkipsInactiveAlert(t *testing.T) {
	engine := NewEngine(&fakeSearcher{}, 50)

	alert := activeAlert()
	alert.IsActive = false

	res, err := engine.Scan(context.Background(), alert)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestBuildFilters_AllCriteria(t *testing.T) {
	engine := NewEngine(&fakeSearcher{}, 50)

	alert := activeAlert()
	alert.City = "Austin"
	alert.State = "TX"
	alert.IncludeRemote = true
	alert.Skills = []string{"go", "sql"}
	alert.JobTypes = []string{"full_time", "contract"}
	alert.ExperienceLevels = []string{"mid", "senior"}

	want := "(city:Austin && state:TX) || isRemote:true" +
		" && skills:go && skills:sql" +
		" && jobType:[full_time, contract]" +
		" && experience:[mid, senior]"
	assert.Equal(t, want, engine.BuildFilters(alert))
}

func TestBuildFilters_NoCriteriaYieldsEmptyExpression(t *testing.T) {
	engine := NewEngine(&fakeSearcher{}, 50)
	assert.Equal(t, "", engine.BuildFilters(activeAlert()))
}

func TestScan_PassesWatermarkAndLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := NewEngine(searcher, 25)

	lastSent := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	alert := activeAlert()
	alert.SearchQuery = "backend"
	alert.LastSentAt = &lastSent

	_, err := engine.Scan(context.Background(), alert)
	require.NoError(t, err)

	assert.Equal(t, "backend", searcher.gotQuery)
	require.NotNil(t, searcher.gotLastSent)
	assert.Equal(t, lastSent, *searcher.gotLastSent)
	assert.Equal(t, 25, searcher.gotLimit)
}

func TestScan_RelevanceScorePropagated(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{
		Hits: []search.Hit{{JobID: 1, Score: 2.5, Doc: search.JobDocument{Title: "Go Engineer"}}},
	}}
	engine := NewEngine(searcher, 50)

	alert := activeAlert()
	alert.SearchQuery = "go"

	res, err := engine.Scan(context.Background(), alert)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, 2.5, res.Candidates[0].Score)
}

func TestScan_DefaultScoreWithoutSearchText(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{
		Hits: []search.Hit{{JobID: 1, Score: 0, Doc: search.JobDocument{Title: "Go Engineer", City: "Austin", State: "TX"}}},
	}}
	engine := NewEngine(searcher, 50)

	alert := activeAlert()
	alert.Skills = []string{"go"}

	res, err := engine.Scan(context.Background(), alert)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, DefaultMatchScore, res.Candidates[0].Score)
	assert.Equal(t, "Austin, TX", res.Candidates[0].Location)
}

func TestNewEngine_DefaultsLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := NewEngine(searcher, 0)

	_, err := engine.Scan(context.Background(), activeAlert())
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchLimit, searcher.gotLimit)
}
