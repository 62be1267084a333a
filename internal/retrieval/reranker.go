package retrieval

import (
	"sort"
	"strings"
	"unicode"
)

// rerank reorders hits by blending the vector similarity with query-term
// overlap, half weight each. Vector scores alone rank near-duplicates of
// the query phrasing too low when the corpus is mostly tabular text; the
// lexical half pulls rows that literally mention the asked-about floor or
// room back up. Ties break on chunk id, which keeps repeated calls with the
// same index state byte-identical.
func rerank(query string, hits []Result) []Result {
	if len(hits) < 2 {
		return hits
	}

	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return hits
	}

	type scored struct {
		hit      Result
		combined float32
	}
	scoredHits := make([]scored, len(hits))
	for i, h := range hits {
		overlap := termOverlap(queryTokens, tokenSet(h.Content))
		scoredHits[i] = scored{hit: h, combined: 0.5*h.Score + 0.5*overlap}
	}

	sort.SliceStable(scoredHits, func(i, j int) bool {
		if scoredHits[i].combined != scoredHits[j].combined {
			return scoredHits[i].combined > scoredHits[j].combined
		}
		return scoredHits[i].hit.ID < scoredHits[j].hit.ID
	})

	out := make([]Result, len(scoredHits))
	for i, s := range scoredHits {
		out[i] = s.hit.withScore(s.combined)
	}
	return out
}

func (r Result) withScore(score float32) Result {
	r.Score = score
	return r
}

// termOverlap is the fraction of query terms present in the document.
func termOverlap(query, doc map[string]struct{}) float32 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for term := range query {
		if _, ok := doc[term]; ok {
			matched++
		}
	}
	return float32(matched) / float32(len(query))
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "with": {},
	"was": {}, "what": {}, "which": {}, "how": {}, "why": {},
	"last": {}, "this": {}, "that": {},
}

func tokenSet(text string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		// Short alphabetic tokens are noise, but short numbers are floor
		// and room identifiers.
		if len(t) < 3 && !isDigits(t) {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
