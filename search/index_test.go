package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/alerts.api/enums"
)

var testBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testJobs() []JobDocument {
	return []JobDocument{
		NewDocument(Job{
			ID: 1, Title: "Senior Go Engineer", Company: "Acme",
			Description: "Building backend services in Go and Postgres",
			City:        "Austin", State: "TX", Country: "US",
			IsActive: true, Experience: "senior", JobType: "full_time",
			Skills: []string{"go", "sql"}, CreatedAt: testBase,
		}),
		NewDocument(Job{
			ID: 2, Title: "React Developer", Company: "Globex",
			Description: "Frontend role using React and TypeScript",
			IsRemote:    true, IsActive: true, Experience: "mid", JobType: "contract",
			Skills: []string{"react", "typescript"}, CreatedAt: testBase.Add(time.Hour),
		}),
		NewDocument(Job{
			ID: 3, Title: "Data Analyst", Company: "Initech",
			Description: "Closed posting for reporting work",
			City:        "Austin", State: "TX",
			IsActive:    false, Experience: "entry", JobType: "full_time",
			Skills: []string{"sql"}, CreatedAt: testBase.Add(2 * time.Hour),
		}),
		NewDocument(Job{
			ID: 4, Title: "Go Platform Engineer", Company: "Hooli",
			Description: "Platform team working on Kubernetes tooling",
			City:        "Denver", State: "CO",
			IsActive:    true, Experience: "senior", JobType: "contract",
			Skills: []string{"go", "kubernetes"}, CreatedAt: testBase.Add(3 * time.Hour),
		}),
	}
}

func seedIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := OpenMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	failed := idx.IndexMany(testJobs())
	require.Empty(t, failed)

	return idx
}

func hitIDs(res *Result) []int64 {
	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.JobID)
	}
	return ids
}

func TestSearchForAlert_ExcludesInactiveJobs(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.SearchForAlert(context.Background(), "", "", nil, 50)
	require.NoError(t, err)

	assert.Equal(t, []int64{4, 2, 1}, hitIDs(res))
}

func TestSearchForAlert_WatermarkBoundsByCreatedAt(t *testing.T) {
	idx := seedIndex(t)

	lastSent := testBase.Add(30 * time.Minute)
	res, err := idx.SearchForAlert(context.Background(), "", "", &lastSent, 50)
	require.NoError(t, err)

	assert.Equal(t, []int64{4, 2}, hitIDs(res))
}

func TestSearchForAlert_SkillRequirementSet(t *testing.T) {
	idx := seedIndex(t)

	filters := NewFilterBuilder().AddSkillFilters([]string{"go", "sql"}, true).Build()
	res, err := idx.SearchForAlert(context.Background(), "", filters, nil, 50)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, hitIDs(res))
}

func TestSearchForAlert_LocationOrRemote(t *testing.T) {
	idx := seedIndex(t)

	filters := NewFilterBuilder().
		AddLocationFilters(Location{City: "Austin", State: "TX"}, true).
		Build()
	res, err := idx.SearchForAlert(context.Background(), "", filters, nil, 50)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1, 2}, hitIDs(res))
}

func TestSearchForAlert_JobTypeOrSet(t *testing.T) {
	idx := seedIndex(t)

	filters := NewFilterBuilder().AddArrayFilter(FieldJobType, []string{"contract"}).Build()
	res, err := idx.SearchForAlert(context.Background(), "", filters, nil, 50)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{2, 4}, hitIDs(res))
}

func TestSearchForAlert_TextRanksMatchingJobs(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.SearchForAlert(context.Background(), "go engineer", "", nil, 50)
	require.NoError(t, err)

	require.NotEmpty(t, res.Hits)
	assert.ElementsMatch(t, []int64{1, 4}, hitIDs(res))
}

func TestSearchForAlert_PrefixMatchesShortQueries(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.SearchForAlert(context.Background(), "engi", "", nil, 50)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1, 4}, hitIDs(res))
}

func TestSearchForAlert_RespectsLimit(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.SearchForAlert(context.Background(), "", "", nil, 2)
	require.NoError(t, err)

	assert.Len(t, res.Hits, 2)
	assert.Equal(t, uint64(3), res.Total)
}

func TestSearch_DefaultSortIsDateDescending(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.Search(context.Background(), "", "", SearchOptions{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []int64{4, 3, 2, 1}, hitIDs(res))
}

func TestSearch_TitleSortAscending(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.Search(context.Background(), "", "", SearchOptions{
		SortBy: enums.SortByTitle, SortDirection: SortAsc, Limit: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 4, 2, 1}, hitIDs(res))
}

func TestSearch_TextQueryReturnsOnlyMatching(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.Search(context.Background(), "engineer", "", SearchOptions{Limit: 10})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1, 4}, hitIDs(res))
}

func TestRetrieveByID_RoundTrip(t *testing.T) {
	idx := seedIndex(t)

	doc, err := idx.RetrieveByID(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Engineer", doc.Title)
	assert.Equal(t, "Acme", doc.Company)
	assert.ElementsMatch(t, []string{"go", "sql"}, doc.Skills)
	assert.True(t, doc.IsActive)
	assert.Equal(t, testBase.Unix(), doc.CreatedAt)
}

func TestUpdateByID_PartialFields(t *testing.T) {
	idx := seedIndex(t)

	err := idx.UpdateByID(context.Background(), 4, map[string]any{FieldIsActive: false})
	require.NoError(t, err)

	res, err := idx.SearchForAlert(context.Background(), "", "", nil, 50)
	require.NoError(t, err)
	assert.NotContains(t, hitIDs(res), int64(4))

	// Untouched fields survive the partial update.
	doc, err := idx.RetrieveByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Go Platform Engineer", doc.Title)
}

func TestDeleteByID(t *testing.T) {
	idx := seedIndex(t)

	require.NoError(t, idx.DeleteByID(2))

	_, err := idx.RetrieveByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteByTitle(t *testing.T) {
	idx := seedIndex(t)

	deleted, err := idx.DeleteByTitle(context.Background(), "React Developer")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = idx.RetrieveByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
