package search

import (
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter_Empty(t *testing.T) {
	q, err := ParseFilter("")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestParseFilter_SingleTerm(t *testing.T) {
	q, err := ParseFilter("skills:go")
	require.NoError(t, err)

	tq, ok := q.(*query.TermQuery)
	require.True(t, ok)
	assert.Equal(t, "go", tq.Term)
	assert.Equal(t, "skills", tq.Field())
}

func TestParseFilter_Conjunction(t *testing.T) {
	q, err := ParseFilter("skills:go && skills:sql")
	require.NoError(t, err)

	cq, ok := q.(*query.ConjunctionQuery)
	require.True(t, ok)
	assert.Len(t, cq.Conjuncts, 2)
}

func TestParseFilter_OrSet(t *testing.T) {
	q, err := ParseFilter("jobType:[full_time, contract]")
	require.NoError(t, err)

	dq, ok := q.(*query.DisjunctionQuery)
	require.True(t, ok)
	assert.Len(t, dq.Disjuncts, 2)
}

func TestParseFilter_LocationGroupWithRemote(t *testing.T) {
	q, err := ParseFilter("(city:Austin && state:TX) || isRemote:true")
	require.NoError(t, err)

	dq, ok := q.(*query.DisjunctionQuery)
	require.True(t, ok)
	require.Len(t, dq.Disjuncts, 2)

	_, ok = dq.Disjuncts[0].(*query.ConjunctionQuery)
	assert.True(t, ok)
	bq, ok := dq.Disjuncts[1].(*query.BoolFieldQuery)
	require.True(t, ok)
	assert.True(t, bq.Bool)
}

func TestParseFilter_NumericBound(t *testing.T) {
	q, err := ParseFilter("createdAt:>=1700000000")
	require.NoError(t, err)

	rq, ok := q.(*query.NumericRangeQuery)
	require.True(t, ok)
	require.NotNil(t, rq.Min)
	assert.Equal(t, float64(1700000000), *rq.Min)
	assert.Nil(t, rq.Max)
}

func TestParseFilter_BooleanField(t *testing.T) {
	q, err := ParseFilter("isRemote:false")
	require.NoError(t, err)

	bq, ok := q.(*query.BoolFieldQuery)
	require.True(t, ok)
	assert.False(t, bq.Bool)
}

func TestParseFilter_Malformed(t *testing.T) {
	_, err := ParseFilter("no-colon-here")
	assert.Error(t, err)

	_, err = ParseFilter("createdAt:>=notanumber")
	assert.Error(t, err)

	_, err = ParseFilter("isActive:maybe")
	assert.Error(t, err)
}
