// Package result reshapes raw Elasticsearch search responses into the compact
// form returned to agents, de-duplicating highlight fragments along the way.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every error returned for a response that has a
// hits container but not the shape of a search response.
var ErrMalformed = errors.New("malformed search response")

// Hit is one element of hits.hits in a raw response.
type Hit struct {
	ID        string
	Score     *float64
	Source    map[string]any
	Highlight map[string]any
}

// Document is a normalized hit.
type Document struct {
	DocumentID         string         `json:"document_id"`
	Score              float64        `json:"score"`
	Source             map[string]any `json:"source"`
	HighlightedContent map[string]any `json:"highlighted_content,omitempty"`
}

// Result is a normalized search response.
type Result struct {
	TotalHits int        `json:"total_hits"`
	MaxScore  *float64   `json:"max_score,omitempty"`
	Documents []Document `json:"documents"`
}

// Normalize converts a decoded search response.
//
// A response without a "hits" key is not a search response; it is reported with
// normalized=false and the caller should hand raw back unchanged.
func Normalize(raw map[string]any) (res *Result, normalized bool, err error) {
	container, ok := raw["hits"]
	if !ok {
		return nil, false, nil
	}

	hits, ok := container.(map[string]any)
	if !ok {
		return nil, true, fmt.Errorf("%w: hits is %T, not an object", ErrMalformed, container)
	}

	total, err := totalHits(hits)
	if err != nil {
		return nil, true, err
	}

	maxScore, err := optionalNumber(hits["max_score"])
	if err != nil {
		return nil, true, fmt.Errorf("%w: max_score: %v", ErrMalformed, err)
	}

	list, ok := hits["hits"].([]any)
	if !ok {
		if _, present := hits["hits"]; !present {
			return nil, true, fmt.Errorf("%w: missing hits.hits", ErrMalformed)
		}
		return nil, true, fmt.Errorf("%w: hits.hits is %T, not an array", ErrMalformed, hits["hits"])
	}

	docs := make([]Document, 0, len(list))
	for i, item := range list {
		hit, err := ParseHit(item)
		if err != nil {
			return nil, true, fmt.Errorf("hit %d: %w", i, err)
		}
		doc, err := NormalizeHit(hit)
		if err != nil {
			return nil, true, fmt.Errorf("hit %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	return &Result{
		TotalHits: total,
		MaxScore:  maxScore,
		Documents: docs,
	}, true, nil
}

// ParseHit reads one raw element of hits.hits.
func ParseHit(v any) (Hit, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Hit{}, fmt.Errorf("%w: hit is %T, not an object", ErrMalformed, v)
	}

	id, ok := m["_id"].(string)
	if !ok {
		return Hit{}, fmt.Errorf("%w: hit without string _id", ErrMalformed)
	}

	score, err := optionalNumber(m["_score"])
	if err != nil {
		return Hit{}, fmt.Errorf("%w: _score: %v", ErrMalformed, err)
	}

	hit := Hit{ID: id, Score: score}

	if src, present := m["_source"]; present && src != nil {
		srcMap, ok := src.(map[string]any)
		if !ok {
			return Hit{}, fmt.Errorf("%w: _source is %T, not an object", ErrMalformed, src)
		}
		hit.Source = srcMap
	}

	if hl, present := m["highlight"]; present && hl != nil {
		hlMap, ok := hl.(map[string]any)
		if !ok {
			return Hit{}, fmt.Errorf("%w: highlight is %T, not an object", ErrMalformed, hl)
		}
		hit.Highlight = hlMap
	}

	return hit, nil
}

// NormalizeHit builds the document for a parsed hit. A missing score becomes 0
// and a missing source an empty object.
func NormalizeHit(h Hit) (Document, error) {
	doc := Document{
		DocumentID: h.ID,
		Source:     h.Source,
	}
	if h.Score != nil {
		doc.Score = *h.Score
	}
	if doc.Source == nil {
		doc.Source = map[string]any{}
	}

	if h.Highlight != nil {
		content, err := dedupeFields(h.Highlight)
		if err != nil {
			return Document{}, err
		}
		doc.HighlightedContent = content
	}

	return doc, nil
}

// dedupeFields applies DedupeHighlights to every list-valued field. Other
// values are copied as they are.
func dedupeFields(highlight map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(highlight))
	for field, value := range highlight {
		var fragments []string
		switch v := value.(type) {
		case []string:
			fragments = v
		case []any:
			fragments = make([]string, 0, len(v))
			for _, f := range v {
				s, ok := f.(string)
				if !ok {
					return nil, fmt.Errorf("%w: highlight.%s holds %T, not a string", ErrMalformed, field, f)
				}
				fragments = append(fragments, s)
			}
		default:
			out[field] = value
			continue
		}
		out[field] = DedupeHighlights(fragments)
	}
	return out, nil
}

func totalHits(hits map[string]any) (int, error) {
	total, present := hits["total"]
	if !present || total == nil {
		return 0, fmt.Errorf("%w: missing hits.total", ErrMalformed)
	}

	if obj, ok := total.(map[string]any); ok {
		value, present := obj["value"]
		if !present {
			return 0, fmt.Errorf("%w: missing hits.total.value", ErrMalformed)
		}
		total = value
	}

	n, err := toNumber(total)
	if err != nil {
		return 0, fmt.Errorf("%w: hits.total: %v", ErrMalformed, err)
	}
	return int(n), nil
}

func optionalNumber(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	n, err := toNumber(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
