package search

import (
	"fmt"
	"strings"
)

// Index field names. The filter builder and the index client share these so
// the accepted filter vocabulary and the indexed schema cannot drift.
const (
	FieldTitle       = "title"
	FieldTitleExact  = "titleExact"
	FieldDescription = "description"
	FieldCompany     = "company"
	FieldCity        = "city"
	FieldState       = "state"
	FieldCountry     = "country"
	FieldIsRemote    = "isRemote"
	FieldIsActive    = "isActive"
	FieldExperience  = "experience"
	FieldJobType     = "jobType"
	FieldSkills      = "skills"
	FieldLanguage    = "language"
	FieldCreatedAt   = "createdAt"
)

type Location struct {
	City    string
	State   string
	Country string
}

// FilterBuilder accumulates filter clauses and joins them with " && " in
// insertion order. Only absence (nil, empty string, empty slice) skips a
// clause; zero and false are legitimate filter values. Values are passed
// through unescaped; the grammar's escaping is the index client's concern.
type FilterBuilder struct {
	clauses []string
}

func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{clauses: make([]string, 0, 8)}
}

// AddLocationFilters combines the location AND-clause with the remote flag:
// both present yields "(location-clause) || isRemote:true", either alone
// yields just that clause, neither is a no-op.
func (b *FilterBuilder) AddLocationFilters(loc Location, includeRemote bool) *FilterBuilder {
	parts := make([]string, 0, 3)
	if loc.City != "" {
		parts = append(parts, FieldCity+":"+loc.City)
	}
	if loc.State != "" {
		parts = append(parts, FieldState+":"+loc.State)
	}
	if loc.Country != "" {
		parts = append(parts, FieldCountry+":"+loc.Country)
	}

	locClause := strings.Join(parts, " && ")
	remoteClause := FieldIsRemote + ":true"

	switch {
	case locClause != "" && includeRemote:
		b.clauses = append(b.clauses, "("+locClause+") || "+remoteClause)
	case locClause != "":
		b.clauses = append(b.clauses, locClause)
	case includeRemote:
		b.clauses = append(b.clauses, remoteClause)
	}

	return b
}

// AddSkillFilters adds one clause per skill when matchAll is set (the skill
// list is a requirement set), otherwise a single OR-set clause.
func (b *FilterBuilder) AddSkillFilters(skills []string, matchAll bool) *FilterBuilder {
	if len(skills) == 0 {
		return b
	}

	if matchAll {
		for _, skill := range skills {
			b.clauses = append(b.clauses, FieldSkills+":"+skill)
		}
		return b
	}

	return b.AddArrayFilter(FieldSkills, skills)
}

// AddArrayFilter adds an OR-set clause, field:[v1, v2]. Empty input is a
// no-op, never an error.
func (b *FilterBuilder) AddArrayFilter(field string, values []string) *FilterBuilder {
	if len(values) == 0 {
		return b
	}

	b.clauses = append(b.clauses, field+":["+strings.Join(values, ", ")+"]")
	return b
}

// AddSingleFilter adds an equality clause. nil and "" are treated as absent;
// the literal 0 and false still produce a clause.
func (b *FilterBuilder) AddSingleFilter(field string, value any) *FilterBuilder {
	if value == nil {
		return b
	}
	if s, ok := value.(string); ok && s == "" {
		return b
	}

	b.clauses = append(b.clauses, fmt.Sprintf("%s:%v", field, value))
	return b
}

// AddMinimumFilter adds a lower-bound clause, field:>=value.
func (b *FilterBuilder) AddMinimumFilter(field string, value int64) *FilterBuilder {
	b.clauses = append(b.clauses, fmt.Sprintf("%s:>=%d", field, value))
	return b
}

// Build joins the accumulated clauses. It is non-destructive; calling it
// repeatedly without mutation yields the same string.
func (b *FilterBuilder) Build() string {
	return strings.Join(b.clauses, " && ")
}

// Reset clears the builder for reuse across alerts without reallocation.
func (b *FilterBuilder) Reset() *FilterBuilder {
	b.clauses = b.clauses[:0]
	return b
}
