// Package rules implements the hard-rules validator: time window,
// threshold alignment, and resolution-source checks. Any failure
// rejects the candidate before the LLM stage ever runs.
package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arbengine/arbengine/internal/domain"
)

// Result is the outcome of validating one candidate pair.
type Result struct {
	Passed bool
	Reason string
}

// Config holds the hard-rules validator's tunable defaults.
type Config struct {
	MinOpenDuration         time.Duration // default 1 hour
	TimeWindowTolerance     time.Duration // default 24 hours
	ThresholdValueTolerance float64       // default 0.01

	// ResolutionSynonyms maps free-text resolution sources to a
	// canonical slug, e.g. "bureau of labor statistics" -> "bls".
	ResolutionSynonyms map[string]string

	// AllowedMismatches lists unordered (sourceA, sourceB) canonical
	// slug pairs permitted to differ.
	AllowedMismatches map[[2]string]struct{}
}

// DefaultConfig returns the spec's documented defaults plus a small
// starter synonym table.
func DefaultConfig() Config {
	return Config{
		MinOpenDuration:         time.Hour,
		TimeWindowTolerance:     24 * time.Hour,
		ThresholdValueTolerance: 0.01,
		ResolutionSynonyms: map[string]string{
			"bureau of labor statistics": "bls",
			"bls":                        "bls",
			"federal reserve":            "fed",
			"fed":                        "fed",
			"federal open market committee": "fomc",
			"fomc":                        "fomc",
			"bureau of economic analysis": "bea",
			"bea":                         "bea",
		},
		AllowedMismatches: map[[2]string]struct{}{},
	}
}

var thresholdRe = regexp.MustCompile(`(?i)(above|over|exceed[s]?|≥|>=|below|under|≤|<=|less than|at least|at most)\s*\$?(\d+(?:\.\d+)?)\s*%?`)

func normalizeOperator(op string) string {
	op = strings.ToLower(op)
	switch op {
	case "above", "over", "exceed", "exceeds", "≥", ">=", "at least":
		return "gte"
	case "below", "under", "≤", "<=", "less than", "at most":
		return "lte"
	default:
		return op
	}
}

// threshold is an extracted (operator, value) pair.
type threshold struct {
	operator string
	value    float64
	found    bool
}

func extractThreshold(text string) threshold {
	m := thresholdRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return threshold{}
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return threshold{}
	}
	return threshold{operator: normalizeOperator(m[1]), value: v, found: true}
}

func normalizeSource(raw string, synonyms map[string]string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if slug, ok := synonyms[lower]; ok {
		return slug
	}
	return lower
}

// Validate applies the three hard rules in order, short-circuiting on
// the first failure, and returns the failure reason verbatim as used
// in scenario 3 ("threshold mismatch").
func Validate(cfg Config, primary, hedge domain.Market) Result {
	// 1. Time window
	primaryDur := primary.CloseTime.Sub(primary.OpenTime)
	hedgeDur := hedge.CloseTime.Sub(hedge.OpenTime)
	if primaryDur < cfg.MinOpenDuration || hedgeDur < cfg.MinOpenDuration {
		return Result{Passed: false, Reason: "open window shorter than minimum on at least one side"}
	}
	closeDelta := primary.CloseTime.Sub(hedge.CloseTime)
	if closeDelta < 0 {
		closeDelta = -closeDelta
	}
	if closeDelta > cfg.TimeWindowTolerance {
		return Result{Passed: false, Reason: "close times outside tolerance window"}
	}

	// 2. Threshold alignment
	tp := extractThreshold(primary.Title)
	th := extractThreshold(hedge.Title)
	if tp.found != th.found {
		return Result{Passed: false, Reason: "threshold mismatch"}
	}
	if tp.found && th.found {
		if tp.operator != th.operator {
			return Result{Passed: false, Reason: "threshold mismatch"}
		}
		if math.Abs(tp.value-th.value) > cfg.ThresholdValueTolerance {
			return Result{Passed: false, Reason: "threshold mismatch"}
		}
	}

	// 3. Resolution source
	srcP := normalizeSource(primary.ResolutionSource, cfg.ResolutionSynonyms)
	srcH := normalizeSource(hedge.ResolutionSource, cfg.ResolutionSynonyms)
	if srcP != srcH {
		key := [2]string{srcP, srcH}
		keyRev := [2]string{srcH, srcP}
		_, okA := cfg.AllowedMismatches[key]
		_, okB := cfg.AllowedMismatches[keyRev]
		if !okA && !okB {
			return Result{Passed: false, Reason: fmt.Sprintf("resolution source mismatch: %s vs %s", srcP, srcH)}
		}
	}

	return Result{Passed: true}
}
