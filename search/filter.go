package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2/search/query"
)

// The filter grammar mirrors the index's wire contract: clauses joined with
// " && ", OR-sets as field:[v1, v2], alternation groups with " || ", and
// numeric lower bounds as field:>=N. This parser translates an expression
// into the engine's native query tree.

type fieldKind int

const (
	kindTerm fieldKind = iota
	kindBool
	kindNumeric
)

var fieldKinds = map[string]fieldKind{
	FieldIsRemote:  kindBool,
	FieldIsActive:  kindBool,
	FieldCreatedAt: kindNumeric,
}

// ParseFilter turns a filter expression into a query. An empty expression
// yields nil (match everything at the filter level).
func ParseFilter(expr string) (query.Query, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	clauses := splitTopLevel(expr, " && ")
	parsed := make([]query.Query, 0, len(clauses))
	for _, clause := range clauses {
		q, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, q)
	}

	if len(parsed) == 1 {
		return parsed[0], nil
	}
	return query.NewConjunctionQuery(parsed), nil
}

func parseClause(clause string) (query.Query, error) {
	clause = stripParens(strings.TrimSpace(clause))

	alternatives := splitTopLevel(clause, " || ")
	if len(alternatives) > 1 {
		parsed := make([]query.Query, 0, len(alternatives))
		for _, alt := range alternatives {
			q, err := parseClause(alt)
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, q)
		}
		return query.NewDisjunctionQuery(parsed), nil
	}

	conjuncts := splitTopLevel(clause, " && ")
	if len(conjuncts) > 1 {
		parsed := make([]query.Query, 0, len(conjuncts))
		for _, c := range conjuncts {
			q, err := parseClause(c)
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, q)
		}
		return query.NewConjunctionQuery(parsed), nil
	}

	return parseAtom(clause)
}

func parseAtom(atom string) (query.Query, error) {
	sep := strings.Index(atom, ":")
	if sep <= 0 || sep == len(atom)-1 {
		return nil, fmt.Errorf("malformed filter clause %q", atom)
	}

	field := atom[:sep]
	value := atom[sep+1:]

	if strings.HasPrefix(value, ">=") {
		min, err := strconv.ParseFloat(strings.TrimSpace(value[2:]), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed numeric bound %q: %w", atom, err)
		}
		inclusive := true
		q := query.NewNumericRangeInclusiveQuery(&min, nil, &inclusive, nil)
		q.SetField(field)
		return q, nil
	}

	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		values := strings.Split(value[1:len(value)-1], ",")
		parsed := make([]query.Query, 0, len(values))
		for _, v := range values {
			q, err := scalarQuery(field, strings.TrimSpace(v))
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, q)
		}
		if len(parsed) == 0 {
			return nil, fmt.Errorf("empty OR-set in clause %q", atom)
		}
		return query.NewDisjunctionQuery(parsed), nil
	}

	return scalarQuery(field, value)
}

func scalarQuery(field, value string) (query.Query, error) {
	switch fieldKinds[field] {
	case kindBool:
		val, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("malformed boolean filter %s:%s: %w", field, value, err)
		}
		q := query.NewBoolFieldQuery(val)
		q.SetField(field)
		return q, nil
	case kindNumeric:
		num, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed numeric filter %s:%s: %w", field, value, err)
		}
		inclusive := true
		q := query.NewNumericRangeInclusiveQuery(&num, &num, &inclusive, &inclusive)
		q.SetField(field)
		return q, nil
	default:
		q := query.NewTermQuery(value)
		q.SetField(field)
		return q, nil
	}
}

// splitTopLevel splits on sep outside parentheses and brackets.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// stripParens removes a balanced outer parenthesis pair, if the whole
// string is wrapped by one.
func stripParens(s string) string {
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		depth := 0
		wrapped := true
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 && i < len(s)-1 {
				wrapped = false
				break
			}
		}
		if !wrapped {
			return s
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
