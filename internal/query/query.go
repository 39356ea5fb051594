// Package query builds Elasticsearch request bodies for the gateway's search modes.
//
// Every builder is a pure function of its Request: a fresh Body is returned on each
// call and nothing is retained, so builders are safe for concurrent use.
package query

import (
	"fmt"
)

// Mode selects the shape of the query body.
type Mode string

const (
	// ModeKeyword is a multi_match full-text query.
	ModeKeyword Mode = "keyword"
	// ModeSemantic queries the semantic_text field.
	ModeSemantic Mode = "semantic"
	// ModeHybrid fuses keyword and semantic retrievers with reciprocal rank fusion.
	ModeHybrid Mode = "hybrid"
	// ModeCount builds a _count request body.
	ModeCount Mode = "count"
)

// Index field names the gateway queries. They match the FSCrawler document layout
// with an additional semantic_text copy of content.
const (
	FieldContent         = "content"
	FieldContentSemantic = "content_semantic"
	FieldFilename        = "file.filename"
	FieldVirtualPath     = "path.virtual"
)

// Highlight markup wrapped around matched terms.
const (
	PreTag  = "<mark>"
	PostTag = "</mark>"
)

// Boosts applied when semantic search is hybridised to obtain highlight anchors.
const (
	SemanticBoost = 2.0
	KeywordBoost  = 0.5
)

// Body is a query DSL document ready to be JSON encoded.
type Body map[string]any

// Request holds the caller parameters shared by all search modes.
type Request struct {
	Query string

	// Size is the number of hits to return. Zero is valid.
	Size int

	// Highlight enables highlighting of the content field. FragmentSize and
	// NumFragments are only used when it is set.
	Highlight    bool
	FragmentSize int
	NumFragments int

	// RankWindowSize and RankConstant parameterise hybrid mode only.
	RankWindowSize int
	RankConstant   int
}

// ParseMode converts a user supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeKeyword, ModeSemantic, ModeHybrid, ModeCount:
		return Mode(s), nil
	case "":
		return ModeKeyword, nil
	default:
		return "", fmt.Errorf("unsupported search mode %q (supported: keyword, semantic, hybrid, count)", s)
	}
}

// Build returns the request body for mode.
func Build(mode Mode, req Request) (Body, error) {
	switch mode {
	case ModeKeyword:
		return Keyword(req), nil
	case ModeSemantic:
		return Semantic(req), nil
	case ModeHybrid:
		return Hybrid(req), nil
	case ModeCount:
		return Count(req.Query), nil
	default:
		return nil, fmt.Errorf("unsupported search mode %q", mode)
	}
}

// Keyword builds a multi_match search over content and filename.
func Keyword(req Request) Body {
	body := Body{
		"query": multiMatch(req.Query, FieldContent, FieldFilename),
		"size":  req.Size,
	}
	applyHighlight(body, req)
	return body
}

// Semantic builds a semantic search on the semantic_text field.
//
// The engine cannot highlight vector matches, so when highlighting is requested the
// semantic clause is combined with a low-boost full-text clause that supplies the
// highlight anchors.
func Semantic(req Request) Body {
	if !req.Highlight {
		return Body{
			"query": Body{"semantic": semanticClause(req.Query)},
			"_source": []string{
				FieldContent, FieldContentSemantic, FieldFilename, FieldVirtualPath,
			},
			"size": req.Size,
		}
	}

	semantic := semanticClause(req.Query)
	semantic["boost"] = SemanticBoost

	return Body{
		"query": Body{
			"bool": Body{
				"should": []any{
					Body{"semantic": semantic},
					Body{"multi_match": Body{
						"query":  req.Query,
						"fields": []string{FieldContent},
						"boost":  KeywordBoost,
					}},
				},
			},
		},
		"highlight": highlightClause(req),
		"_source":   highlightedSource(),
		"size":      req.Size,
	}
}

// Hybrid builds a reciprocal rank fusion retriever over one keyword and one
// semantic standard retriever. RankWindowSize and RankConstant are passed through.
func Hybrid(req Request) Body {
	retrievers := []any{
		Body{"standard": Body{"query": multiMatch(req.Query, FieldContent)}},
		Body{"standard": Body{"query": Body{"semantic": semanticClause(req.Query)}}},
	}

	body := Body{
		"retriever": Body{
			"rrf": Body{
				"retrievers":       retrievers,
				"rank_window_size": req.RankWindowSize,
				"rank_constant":    req.RankConstant,
			},
		},
		"size": req.Size,
	}
	applyHighlight(body, req)
	return body
}

// Count builds a _count body. An empty query counts every document.
func Count(q string) Body {
	if q == "" {
		return Body{}
	}
	return Body{"query": multiMatch(q, FieldContent, FieldFilename)}
}

func multiMatch(q string, fields ...string) Body {
	return Body{
		"multi_match": Body{
			"query":  q,
			"fields": fields,
		},
	}
}

func semanticClause(q string) Body {
	return Body{
		"field": FieldContentSemantic,
		"query": q,
	}
}

// applyHighlight sets the highlight clause and _source restriction shared by
// keyword and hybrid modes. Content is omitted from _source when highlighting
// since the fragments carry it.
func applyHighlight(body Body, req Request) {
	if req.Highlight {
		body["highlight"] = highlightClause(req)
		body["_source"] = highlightedSource()
		return
	}
	body["_source"] = []string{FieldContent, FieldFilename, FieldVirtualPath}
}

func highlightClause(req Request) Body {
	return Body{
		"fields": Body{
			FieldContent: Body{
				"fragment_size":       req.FragmentSize,
				"number_of_fragments": req.NumFragments,
				"pre_tags":            []string{PreTag},
				"post_tags":           []string{PostTag},
			},
		},
	}
}

func highlightedSource() []string {
	return []string{FieldFilename, FieldVirtualPath}
}
