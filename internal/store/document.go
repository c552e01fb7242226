// Package store implements the local document mirror: a sqlite-backed
// collection of space documents keyed by id, with field-equality queries
// and depth-bounded link resolution.
package store

import (
	"encoding/json"
	"fmt"
)

// Document types as reported in sys.type.
const (
	TypeContentType = "ContentType"
	TypeEntry       = "Entry"
	TypeAsset       = "Asset"
)

// Kind discriminates the Value union. It is decided once, when a document
// is decoded from API JSON, so resolution never re-infers what a value is.
type Kind int

const (
	// KindScalar is a string, number, bool, or null.
	KindScalar Kind = iota
	// KindLink is a reference to another document by id.
	KindLink
	// KindMap is a nested object that is not a link.
	KindMap
	// KindSeq is an ordered array.
	KindSeq
)

// Link is a placeholder referencing another document in the space.
type Link struct {
	LinkType string // target sys.type hint: Entry, Asset, ContentType, Space
	ID       string
}

// Value is a tagged union over the shapes a field value can take.
// Exactly one of the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Scalar any // KindScalar: string, float64, bool, or nil
	Link   Link
	Map    map[string]Value
	Seq    []Value
}

// Sys is the system metadata zone of a document. Only the fields the
// engine needs are retained; the remote sends more.
type Sys struct {
	ID          string
	Type        string
	ContentType *Link // entries only: link to the entry's content type
}

// Document is one mirrored space document. Fields hold the user content
// as a decoded Value tree; Name is set for content types only and backs
// the "entries by content type name" convenience lookup.
type Document struct {
	Sys    Sys
	Name   string
	Fields map[string]Value
}

// rawSys mirrors the sys JSON zone on the wire.
type rawSys struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ContentType *struct {
		Sys rawLinkSys `json:"sys"`
	} `json:"contentType,omitempty"`
}

// rawLinkSys is the sys zone of a link placeholder:
// {"sys": {"type": "Link", "linkType": "Entry", "id": "..."}}.
type rawLinkSys struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
	ID       string `json:"id"`
}

type rawDocument struct {
	Sys    rawSys         `json:"sys"`
	Name   string         `json:"name,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// DecodeDocument parses one API item into a Document, classifying every
// field value into the Value union. Items without a sys.id are rejected —
// the id is the only identity the store has.
func DecodeDocument(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: decoding document: %w", err)
	}

	if raw.Sys.ID == "" {
		return nil, fmt.Errorf("store: document has no sys.id")
	}

	if raw.Sys.Type == "" {
		return nil, fmt.Errorf("store: document %s has no sys.type", raw.Sys.ID)
	}

	doc := &Document{
		Sys: Sys{
			ID:   raw.Sys.ID,
			Type: raw.Sys.Type,
		},
		Name: raw.Name,
	}

	if raw.Sys.ContentType != nil {
		doc.Sys.ContentType = &Link{
			LinkType: raw.Sys.ContentType.Sys.LinkType,
			ID:       raw.Sys.ContentType.Sys.ID,
		}
	}

	if len(raw.Fields) > 0 {
		doc.Fields = make(map[string]Value, len(raw.Fields))
		for k, v := range raw.Fields {
			doc.Fields[k] = decodeValue(v)
		}
	}

	return doc, nil
}

// decodeValue classifies a json.Unmarshal-produced value. A map whose
// "sys" zone says type=Link becomes a Link; any other map is a plain
// nested map.
func decodeValue(v any) Value {
	switch t := v.(type) {
	case map[string]any:
		if link, ok := asLink(t); ok {
			return Value{Kind: KindLink, Link: link}
		}

		m := make(map[string]Value, len(t))
		for k, child := range t {
			m[k] = decodeValue(child)
		}

		return Value{Kind: KindMap, Map: m}
	case []any:
		s := make([]Value, len(t))
		for i, child := range t {
			s[i] = decodeValue(child)
		}

		return Value{Kind: KindSeq, Seq: s}
	default:
		return Value{Kind: KindScalar, Scalar: v}
	}
}

// asLink reports whether a decoded map is a link placeholder.
func asLink(m map[string]any) (Link, bool) {
	sysAny, ok := m["sys"]
	if !ok {
		return Link{}, false
	}

	sys, ok := sysAny.(map[string]any)
	if !ok {
		return Link{}, false
	}

	typ, _ := sys["type"].(string)
	if typ != "Link" {
		return Link{}, false
	}

	id, _ := sys["id"].(string)
	linkType, _ := sys["linkType"].(string)

	return Link{LinkType: linkType, ID: id}, true
}

// MarshalJSON renders the union back into the wire shape, so stored and
// exported documents round-trip byte-compatibly with the API format.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindScalar:
		return json.Marshal(v.Scalar)
	case KindLink:
		return json.Marshal(map[string]any{
			"sys": map[string]any{
				"type":     "Link",
				"linkType": v.Link.LinkType,
				"id":       v.Link.ID,
			},
		})
	case KindMap:
		return json.Marshal(v.Map)
	case KindSeq:
		return json.Marshal(v.Seq)
	default:
		return nil, fmt.Errorf("store: unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON re-classifies a stored value tree. Used when loading
// documents back out of the database.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = decodeValue(raw)

	return nil
}

// MarshalJSON renders the document in API wire shape.
func (d *Document) MarshalJSON() ([]byte, error) {
	sys := map[string]any{
		"id":   d.Sys.ID,
		"type": d.Sys.Type,
	}

	if d.Sys.ContentType != nil {
		sys["contentType"] = map[string]any{
			"sys": map[string]any{
				"type":     "Link",
				"linkType": d.Sys.ContentType.LinkType,
				"id":       d.Sys.ContentType.ID,
			},
		}
	}

	out := map[string]any{"sys": sys}
	if d.Name != "" {
		out["name"] = d.Name
	}

	if d.Fields != nil {
		out["fields"] = d.Fields
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes a document from its stored wire shape.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := DecodeDocument(data)
	if err != nil {
		return err
	}

	*d = *doc

	return nil
}

// Clone returns a deep copy. The resolver works on clones so the store's
// view of a document is never mutated by resolution.
func (d *Document) Clone() *Document {
	out := &Document{
		Sys:  d.Sys,
		Name: d.Name,
	}

	if d.Sys.ContentType != nil {
		ct := *d.Sys.ContentType
		out.Sys.ContentType = &ct
	}

	if d.Fields != nil {
		out.Fields = make(map[string]Value, len(d.Fields))
		for k, v := range d.Fields {
			out.Fields[k] = v.clone()
		}
	}

	return out
}

func (v Value) clone() Value {
	switch v.Kind {
	case KindMap:
		m := make(map[string]Value, len(v.Map))
		for k, child := range v.Map {
			m[k] = child.clone()
		}

		return Value{Kind: KindMap, Map: m}
	case KindSeq:
		s := make([]Value, len(v.Seq))
		for i, child := range v.Seq {
			s[i] = child.clone()
		}

		return Value{Kind: KindSeq, Seq: s}
	default:
		// Scalars and links have no nested mutable state.
		return v
	}
}
