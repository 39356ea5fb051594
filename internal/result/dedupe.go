package result

import (
	"strings"

	"github.com/Aman-CERP/elasticmcp/internal/query"
)

// markStripper removes highlight markup. Only the two tags the query builder
// asks for are recognised.
var markStripper = strings.NewReplacer(query.PreTag, "", query.PostTag, "")

// StripMarkup returns the canonical text of a fragment: markup removed and
// surrounding whitespace trimmed.
func StripMarkup(fragment string) string {
	return strings.TrimSpace(markStripper.Replace(fragment))
}

// Coverage is the number of highlighted spans in a fragment.
func Coverage(fragment string) int {
	return strings.Count(fragment, query.PreTag)
}

// DedupeHighlights collapses fragments with the same canonical text into the
// single fragment carrying the most highlighted spans.
//
// Groups are emitted in order of first occurrence. On equal coverage the first
// fragment seen wins. Fragments whose canonical text is empty are dropped.
// The result is never nil.
func DedupeHighlights(fragments []string) []string {
	type group struct {
		fragment string
		coverage int
	}

	order := make([]string, 0, len(fragments))
	best := make(map[string]*group, len(fragments))

	for _, f := range fragments {
		key := StripMarkup(f)
		if key == "" {
			continue
		}

		cov := Coverage(f)
		g, seen := best[key]
		if !seen {
			best[key] = &group{fragment: f, coverage: cov}
			order = append(order, key)
			continue
		}
		if cov > g.coverage {
			g.fragment = f
			g.coverage = cov
		}
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, best[key].fragment)
	}
	return out
}
