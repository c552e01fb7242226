package store

import (
	"strings"
)

// Predicate is a conjunctive set of field-equality constraints keyed by
// dotted path, e.g. {"sys.type": "Entry", "fields.title": "Hello"}.
// An empty predicate matches every document.
type Predicate map[string]any

// Paths the store can answer from indexed columns instead of decoding
// and walking every document.
const (
	pathSysID         = "sys.id"
	pathSysType       = "sys.type"
	pathSysContentTyp = "sys.contentType.sys.id"
	pathName          = "name"
)

// buildQuery splits a predicate into a SQL query over indexed columns and
// a residual predicate to evaluate against decoded documents.
func buildQuery(pred Predicate) (query string, args []any, rest Predicate) {
	var clauses []string

	rest = Predicate{}

	for path, want := range pred {
		col := ""

		switch path {
		case pathSysID:
			col = "id"
		case pathSysType:
			col = "doc_type"
		case pathSysContentTyp:
			col = "content_type"
		case pathName:
			col = "name"
		}

		s, isString := want.(string)
		if col == "" || !isString {
			rest[path] = want
			continue
		}

		clauses = append(clauses, col+" = ?")
		args = append(args, s)
	}

	query = `SELECT body FROM documents`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY id"

	return query, args, rest
}

// Matches reports whether the document satisfies every constraint.
func (p Predicate) Matches(doc *Document) bool {
	for path, want := range p {
		got, ok := lookupPath(doc, path)
		if !ok || !scalarEqual(got, want) {
			return false
		}
	}

	return true
}

// lookupPath resolves a dotted path against a document. sys.* paths read
// system metadata; all other paths descend the Fields value tree from the
// first segment (a leading "fields." prefix is accepted and stripped).
func lookupPath(doc *Document, path string) (any, bool) {
	switch path {
	case pathSysID:
		return doc.Sys.ID, true
	case pathSysType:
		return doc.Sys.Type, true
	case pathName:
		return doc.Name, true
	case pathSysContentTyp, "sys.contentType.id":
		if doc.Sys.ContentType == nil {
			return nil, false
		}

		return doc.Sys.ContentType.ID, true
	}

	segments := strings.Split(path, ".")
	if segments[0] == "fields" {
		segments = segments[1:]
	}

	if len(segments) == 0 || doc.Fields == nil {
		return nil, false
	}

	v, ok := doc.Fields[segments[0]]
	if !ok {
		return nil, false
	}

	return lookupValue(v, segments[1:])
}

// lookupValue descends a value tree segment by segment. Only map keys are
// addressable; links and sequences terminate the walk unless the path has
// been fully consumed.
func lookupValue(v Value, segments []string) (any, bool) {
	if len(segments) == 0 {
		switch v.Kind {
		case KindScalar:
			return v.Scalar, true
		case KindLink:
			return v.Link, true
		default:
			return nil, false
		}
	}

	if v.Kind != KindMap {
		return nil, false
	}

	child, ok := v.Map[segments[0]]
	if !ok {
		return nil, false
	}

	return lookupValue(child, segments[1:])
}

// scalarEqual compares a looked-up value with a predicate constraint.
// Numeric constraints are normalized to float64 because JSON decoding
// produces float64 for every number.
func scalarEqual(got, want any) bool {
	if gf, ok := toFloat(got); ok {
		if wf, ok := toFloat(want); ok {
			return gf == wf
		}

		return false
	}

	return got == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
