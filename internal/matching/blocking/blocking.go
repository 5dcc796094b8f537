// Package blocking implements the candidate generator: cheap
// lexical/date/threshold features computed per market, used to cut
// the venue-A x venue-B cross product down before the expensive
// hard-rules and LLM stages run.
package blocking

import (
	"regexp"
	"strings"

	"github.com/arbengine/arbengine/internal/domain"
)

// BlockingKey is the set of cheap features extracted from one market's
// title/event text, used to decide whether a cross-venue pair is worth
// validating further.
type BlockingKey struct {
	Category        string
	Entities        map[string]struct{}
	DateTokens      map[string]struct{}
	ThresholdTokens map[string]struct{}
}

var (
	monthPrefixes = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	yearRe        = regexp.MustCompile(`\b20\d{2}\b`)
	quarterRe     = regexp.MustCompile(`(?i)\bq[1-4]\b`)
	thresholdRe   = regexp.MustCompile(`(?i)(above|over|exceed[s]?|≥|>=|below|under|≤|<=|less than|at least|at most)\s*\$?(\d+(?:\.\d+)?)\s*%?`)
	numericUnitRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:%|usd|\$)\b`)
	wordRe        = regexp.MustCompile(`[A-Za-z0-9.%$]+`)
)

// Compute extracts a BlockingKey from a market's category/title/event
// text.
func Compute(m domain.Market) BlockingKey {
	text := m.Title + " " + m.EventName
	lower := strings.ToLower(text)

	key := BlockingKey{
		Category:        strings.ToLower(strings.TrimSpace(m.Category)),
		Entities:        map[string]struct{}{},
		DateTokens:      map[string]struct{}{},
		ThresholdTokens: map[string]struct{}{},
	}

	for _, tok := range wordRe.FindAllString(text, -1) {
		// uppercase tokens >= 2 chars
		if len(tok) >= 2 && tok == strings.ToUpper(tok) && strings.ToUpper(tok) != strings.ToLower(tok) {
			key.Entities[strings.ToLower(tok)] = struct{}{}
			continue
		}
		// capitalized multi-word entities: approximate as capitalized
		// tokens longer than 3 chars
		if len(tok) > 3 && tok[0] >= 'A' && tok[0] <= 'Z' {
			key.Entities[strings.ToLower(tok)] = struct{}{}
		}
	}
	for _, m := range numericUnitRe.FindAllString(lower, -1) {
		key.Entities[strings.TrimSpace(m)] = struct{}{}
	}

	for _, prefix := range monthPrefixes {
		if strings.Contains(lower, prefix) {
			key.DateTokens[prefix] = struct{}{}
		}
	}
	for _, y := range yearRe.FindAllString(text, -1) {
		key.DateTokens[y] = struct{}{}
	}
	for _, q := range quarterRe.FindAllString(lower, -1) {
		key.DateTokens[strings.ToLower(q)] = struct{}{}
	}

	for _, match := range thresholdRe.FindAllStringSubmatch(lower, -1) {
		key.ThresholdTokens[strings.TrimSpace(match[0])] = struct{}{}
	}

	return key
}

// jaccard computes |A ∩ B| / |A ∪ B| for two string sets and returns 0
// when both are empty. Passes treats two empty date-token sets as a
// match without calling it; two empty entity sets score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Passes reports whether two markets' blocking keys clear the
// candidate-generation bar:
//  1. categories match when both present,
//  2. date-token Jaccard >= 0.5 OR both date sets empty,
//  3. entity-token Jaccard >= minJaccard.
func Passes(a, b BlockingKey, minJaccard float64) bool {
	if a.Category != "" && b.Category != "" && a.Category != b.Category {
		return false
	}
	if len(a.DateTokens) == 0 && len(b.DateTokens) == 0 {
		// condition 2 satisfied trivially
	} else if jaccard(a.DateTokens, b.DateTokens) < 0.5 {
		return false
	}
	if jaccard(a.Entities, b.Entities) < minJaccard {
		return false
	}
	return true
}

// Candidate is a surviving venue-A x venue-B pair.
type Candidate struct {
	Primary domain.Market
	Hedge   domain.Market
}

// Stats reports the blocking stage's reduction metrics.
type Stats struct {
	Candidates int
	Blocked    int
}

// ReductionRatio is Blocked / (Candidates + Blocked), or 0 when no
// pairs were examined.
func (s Stats) ReductionRatio() float64 {
	total := s.Candidates + s.Blocked
	if total == 0 {
		return 0
	}
	return float64(s.Blocked) / float64(total)
}

// Generate enumerates the venue-A x venue-B cross product and returns
// the candidates that pass blocking, along with reduction metrics.
func Generate(venueAMarkets, venueBMarkets []domain.Market, minJaccard float64) ([]Candidate, Stats) {
	keysA := make([]BlockingKey, len(venueAMarkets))
	for i, m := range venueAMarkets {
		keysA[i] = Compute(m)
	}
	keysB := make([]BlockingKey, len(venueBMarkets))
	for i, m := range venueBMarkets {
		keysB[i] = Compute(m)
	}

	var out []Candidate
	var stats Stats
	for i, a := range venueAMarkets {
		for j, b := range venueBMarkets {
			if Passes(keysA[i], keysB[j], minJaccard) {
				out = append(out, Candidate{Primary: a, Hedge: b})
				stats.Candidates++
			} else {
				stats.Blocked++
			}
		}
	}
	return out, stats
}
