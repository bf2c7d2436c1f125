package executor

import (
	"strings"
)

// Complexity represents the detected complexity level of an instruction.
// Used to bias model selection toward cost/capability tradeoffs.
type Complexity string

const (
	// ComplexitySimple is for minimal changes: typos, formatting, renames.
	ComplexitySimple Complexity = "simple"

	// ComplexityMedium is for standard feature work.
	ComplexityMedium Complexity = "medium"

	// ComplexityComplex is for architectural changes: refactors, redesigns,
	// security and performance work.
	ComplexityComplex Complexity = "complex"
)

// complexPatterns indicate tasks requiring significant architectural
// consideration. Checked first so a long simple-looking request still
// routes to a capable model.
var complexPatterns = []string{
	"architecture",
	"refactor",
	"redesign",
	"security",
	"performance",
	"algorithm",
	"integration",
	"database",
	"framework",
	"migration",
	"restructure",
}

// simplePatterns indicate small mechanical edits.
var simplePatterns = []string{
	"typo",
	"format",
	"lint",
	"rename",
	"comment",
	"simple",
	"whitespace",
	"spelling",
}

// mediumPatterns indicate routine change requests. Checked after the
// simple set so "fix typo" stays simple while "update the user service"
// classifies as medium regardless of its length.
var mediumPatterns = []string{
	"update",
	"add",
	"change",
	"modify",
	"improve",
	"implement",
	"fix",
}

// Length thresholds for the fallback tier when no keyword matches.
const (
	complexLengthThreshold = 500
	simpleLengthThreshold  = 100
)

// Classify returns the complexity tier for an instruction text.
// Keyword checks take precedence over length heuristics; the decision is
// deterministic and has no side effects.
func Classify(text string) Complexity {
	lower := strings.ToLower(text)

	for _, pattern := range complexPatterns {
		if strings.Contains(lower, pattern) {
			return ComplexityComplex
		}
	}

	for _, pattern := range simplePatterns {
		if strings.Contains(lower, pattern) {
			return ComplexitySimple
		}
	}

	for _, pattern := range mediumPatterns {
		if strings.Contains(lower, pattern) {
			return ComplexityMedium
		}
	}

	switch {
	case len(text) > complexLengthThreshold:
		return ComplexityComplex
	case len(text) < simpleLengthThreshold:
		return ComplexitySimple
	default:
		return ComplexityMedium
	}
}

// String returns the string representation of the complexity level.
func (c Complexity) String() string {
	return string(c)
}
