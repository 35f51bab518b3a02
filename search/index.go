package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/jobdeck/alerts.api/enums"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const defaultPageSize = 20

var ErrDocumentNotFound = errors.New("document not found")

// Index owns the job collection's schema and executes queries against it.
type Index struct {
	idx bleve.Index
}

// Open opens the index at path, creating it with the job schema when absent.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	return &Index{idx: idx}, nil
}

// OpenMemOnly builds an in-memory index with the same schema, for tests.
func OpenMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("open in-memory search index: %w", err)
	}

	return &Index{idx: idx}, nil
}

func (i *Index) Close() error {
	return i.idx.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	job := bleve.NewDocumentMapping()

	// Full-text fields, analyzed.
	titleText := bleve.NewTextFieldMapping()
	titleText.Store = true
	// Second field over the same property, unanalyzed, for exact deletes
	// and title sorting.
	titleExact := bleve.NewTextFieldMapping()
	titleExact.Name = FieldTitleExact
	titleExact.Analyzer = keyword.Name
	titleExact.Store = false
	titleExact.IncludeInAll = false
	job.AddFieldMappingsAt(FieldTitle, titleText, titleExact)

	for _, field := range []string{FieldDescription, FieldCompany} {
		fm := bleve.NewTextFieldMapping()
		fm.Store = true
		job.AddFieldMappingsAt(field, fm)
	}

	// Faceted categorical fields, matched verbatim.
	for _, field := range []string{FieldCity, FieldState, FieldCountry, FieldExperience, FieldJobType, FieldSkills, FieldLanguage} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		fm.IncludeInAll = false
		job.AddFieldMappingsAt(field, fm)
	}

	for _, field := range []string{FieldIsRemote, FieldIsActive} {
		fm := bleve.NewBooleanFieldMapping()
		fm.Store = true
		fm.IncludeInAll = false
		job.AddFieldMappingsAt(field, fm)
	}

	createdAt := bleve.NewNumericFieldMapping()
	createdAt.Store = true
	createdAt.IncludeInAll = false
	job.AddFieldMappingsAt(FieldCreatedAt, createdAt)

	id := bleve.NewNumericFieldMapping()
	id.Store = true
	id.IncludeInAll = false
	job.AddFieldMappingsAt("id", id)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = job
	return m
}

func docID(jobID int64) string {
	return strconv.FormatInt(jobID, 10)
}

// IndexDocument upserts one document.
func (i *Index) IndexDocument(doc JobDocument) error {
	if err := i.idx.Index(docID(doc.ID), doc); err != nil {
		return fmt.Errorf("index document %d: %w", doc.ID, err)
	}

	return nil
}

// IndexError reports a single failed document in a bulk operation.
type IndexError struct {
	JobID int64
	Err   error
}

// IndexMany upserts a batch, continuing past individual failures. Failures
// are returned per document; the queue layer retries failed singles.
func (i *Index) IndexMany(docs []JobDocument) []IndexError {
	var failed []IndexError
	for _, doc := range docs {
		if err := i.idx.Index(docID(doc.ID), doc); err != nil {
			failed = append(failed, IndexError{JobID: doc.ID, Err: err})
		}
	}

	return failed
}

func (i *Index) RetrieveByID(ctx context.Context, jobID int64) (*JobDocument, error) {
	q := query.NewDocIDQuery([]string{docID(jobID)})
	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	req.Fields = []string{"*"}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("retrieve document %d: %w", jobID, err)
	}
	if len(res.Hits) == 0 {
		return nil, ErrDocumentNotFound
	}

	doc := docFromFields(res.Hits[0].Fields)
	return &doc, nil
}

// UpdateByID merges partial fields (keyed by index field name) into the
// stored document and reindexes it.
func (i *Index) UpdateByID(ctx context.Context, jobID int64, fields map[string]any) error {
	doc, err := i.RetrieveByID(ctx, jobID)
	if err != nil {
		return err
	}

	for field, value := range fields {
		applyField(doc, field, value)
	}

	return i.IndexDocument(*doc)
}

func (i *Index) DeleteByID(jobID int64) error {
	if err := i.idx.Delete(docID(jobID)); err != nil {
		return fmt.Errorf("delete document %d: %w", jobID, err)
	}

	return nil
}

// DeleteByTitle removes every document with the exact title, used to clean
// up rejected or duplicate postings. Returns the number of deletions.
func (i *Index) DeleteByTitle(ctx context.Context, title string) (int, error) {
	q := query.NewTermQuery(title)
	q.SetField(FieldTitleExact)
	req := bleve.NewSearchRequestOptions(q, 1000, 0, false)

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("delete by title: %w", err)
	}

	deleted := 0
	for _, hit := range res.Hits {
		if err := i.idx.Delete(hit.ID); err != nil {
			slog.Error("delete by title: delete document", "id", hit.ID, "error", err)
			continue
		}
		deleted++
	}

	return deleted, nil
}

type SearchOptions struct {
	SortBy        enums.SortBy
	SortDirection SortDirection
	Page          int
	Limit         int
	Offset        int
}

type Hit struct {
	JobID int64
	Score float64
	Doc   JobDocument
}

type Result struct {
	Hits  []Hit
	Total uint64
}

// Search runs a general query. With no search text results default to
// newest-first; with text and no explicit sort, native relevance ranking
// governs the order.
func (i *Index) Search(ctx context.Context, queryText, filterExpr string, opts SearchOptions) (*Result, error) {
	var textQ query.Query
	if strings.TrimSpace(queryText) == "" {
		textQ = bleve.NewMatchAllQuery()
	} else {
		textQ = bleve.NewMatchQuery(queryText)
	}

	q, err := withFilter(textQ, filterExpr)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	from := opts.Offset
	if from <= 0 && opts.Page > 1 {
		from = (opts.Page - 1) * limit
	}

	req := bleve.NewSearchRequestOptions(q, limit, from, false)
	req.Fields = []string{"*"}
	applySort(req, queryText, opts)

	return i.run(ctx, req)
}

// SearchForAlert is the matching engine's entry point: empty query means
// match-all, isActive:true is always enforced, and a non-nil lastSentAt
// bounds results to jobs created at or after the watermark. Text matching
// is weighted (title highest, then description and skills, then company)
// and typo-tolerant, because alert queries are short human-typed phrases.
func (i *Index) SearchForAlert(ctx context.Context, queryText, filterExpr string, lastSentAt *time.Time, limit int) (*Result, error) {
	clauses := make([]string, 0, 3)
	if strings.TrimSpace(filterExpr) != "" {
		clauses = append(clauses, filterExpr)
	}
	clauses = append(clauses, FieldIsActive+":true")
	if lastSentAt != nil {
		clauses = append(clauses, fmt.Sprintf("%s:>=%d", FieldCreatedAt, lastSentAt.Unix()))
	}

	q, err := withFilter(alertTextQuery(queryText), strings.Join(clauses, " && "))
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"*"}
	if strings.TrimSpace(queryText) == "" {
		req.SortBy([]string{"-" + FieldCreatedAt})
	}

	return i.run(ctx, req)
}

func (i *Index) run(ctx context.Context, req *bleve.SearchRequest) (*Result, error) {
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := &Result{Hits: make([]Hit, 0, len(res.Hits)), Total: res.Total}
	for _, hit := range res.Hits {
		jobID, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			slog.Error("search: non-numeric document id", "id", hit.ID)
			continue
		}
		out.Hits = append(out.Hits, Hit{
			JobID: jobID,
			Score: hit.Score,
			Doc:   docFromFields(hit.Fields),
		})
	}

	return out, nil
}

func withFilter(textQ query.Query, filterExpr string) (query.Query, error) {
	filterQ, err := ParseFilter(filterExpr)
	if err != nil {
		return nil, err
	}
	if filterQ == nil {
		return textQ, nil
	}

	return bleve.NewConjunctionQuery(textQ, filterQ), nil
}

func alertTextQuery(text string) query.Query {
	text = strings.TrimSpace(text)
	if text == "" {
		return bleve.NewMatchAllQuery()
	}

	weighted := func(field string, boost float64) query.Query {
		q := bleve.NewMatchQuery(text)
		q.SetField(field)
		q.SetBoost(boost)
		q.SetFuzziness(1)
		return q
	}

	prefix := bleve.NewPrefixQuery(strings.ToLower(text))
	prefix.SetField(FieldTitle)
	prefix.SetBoost(3)

	return bleve.NewDisjunctionQuery(
		weighted(FieldTitle, 3),
		weighted(FieldDescription, 2),
		weighted(FieldSkills, 2),
		weighted(FieldCompany, 1),
		prefix,
	)
}

func applySort(req *bleve.SearchRequest, queryText string, opts SearchOptions) {
	sortBy := opts.SortBy
	if sortBy == "" {
		if strings.TrimSpace(queryText) == "" {
			sortBy = enums.SortByDate
		} else {
			sortBy = enums.SortByRelevance
		}
	}

	switch sortBy {
	case enums.SortByDate:
		field := FieldCreatedAt
		if opts.SortDirection != SortAsc {
			field = "-" + field
		}
		req.SortBy([]string{field})
	case enums.SortByTitle:
		field := FieldTitleExact
		if opts.SortDirection == SortDesc {
			field = "-" + field
		}
		req.SortBy([]string{field})
	case enums.SortByRelevance:
		// Native score order; no explicit sort criteria.
	}
}

func docFromFields(fields map[string]any) JobDocument {
	doc := JobDocument{}
	for field, value := range fields {
		applyField(&doc, field, value)
	}
	return doc
}

func applyField(doc *JobDocument, field string, value any) {
	switch field {
	case "id":
		doc.ID = asInt64(value)
	case FieldTitle:
		doc.Title = asString(value)
	case FieldCompany:
		doc.Company = asString(value)
	case FieldDescription:
		doc.Description = asString(value)
	case FieldCity:
		doc.City = asString(value)
	case FieldState:
		doc.State = asString(value)
	case FieldCountry:
		doc.Country = asString(value)
	case FieldIsRemote:
		doc.IsRemote = asBool(value)
	case FieldIsActive:
		doc.IsActive = asBool(value)
	case FieldExperience:
		doc.Experience = asString(value)
	case FieldJobType:
		doc.JobType = asString(value)
	case FieldSkills:
		doc.Skills = asStrings(value)
	case FieldLanguage:
		doc.Language = asString(value)
	case FieldCreatedAt:
		doc.CreatedAt = asInt64(value)
	}
}

// Stored-field values come back loosely typed: numerics as float64, single
// array elements as a bare value.
func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func asStrings(v any) []string {
	switch s := v.(type) {
	case string:
		return []string{s}
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	}
	return nil
}
