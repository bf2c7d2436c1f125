// Package instruction extracts structured resolver instructions from
// free-text issue and comment bodies.
package instruction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Priority is the urgency level requested for an instruction.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Instruction is the structured form of a triggering comment.
// Created once per qualifying input and never mutated afterward.
type Instruction struct {
	// TriggerTag is the mention that activated the resolver (e.g. "@aider").
	TriggerTag string

	// Text is the free-form instruction body following the trigger.
	Text string

	// Files are explicit path patterns from a files:/in: label, in order.
	Files []string

	// Model is an explicit model override from a model:/using: label,
	// lower-cased. Empty when not specified.
	Model string

	// Priority defaults to medium when no priority keyword is present.
	Priority Priority
}

// Extract parses raw comment or issue text into an Instruction.
// Returns nil when the trigger mention is absent; callers must treat
// nil as a normal skip signal, not an error.
func Extract(trigger, text string) *Instruction {
	if trigger == "" || text == "" {
		return nil
	}

	body, ok := splitAfterTrigger(trigger, text)
	if !ok {
		return nil
	}

	instr := &Instruction{
		TriggerTag: trigger,
		Text:       body,
		Priority:   PriorityMedium,
	}

	// Labels are matched against the instruction body; the first match
	// per label wins. Priority keywords are scanned over the entire
	// original text, not just the body.
	for _, m := range labelMatchers {
		m.apply(body, instr)
	}
	instr.Priority = detectPriority(text)

	return instr
}

// splitAfterTrigger locates the trigger mention case-insensitively and
// returns the trimmed text that follows it. The mention must end at a
// word boundary so "@aider" never fires inside "@aiderman".
func splitAfterTrigger(trigger, text string) (string, bool) {
	lower := strings.ToLower(text)
	needle := strings.ToLower(trigger)

	for from := 0; from < len(lower); {
		idx := strings.Index(lower[from:], needle)
		if idx == -1 {
			return "", false
		}
		end := from + idx + len(needle)
		if end >= len(text) {
			return "", true
		}
		r, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(r) {
			body := strings.TrimLeft(text[end:], ":,")
			return strings.TrimSpace(body), true
		}
		from = end
	}
	return "", false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// detectPriority scans text for priority keywords. High-priority keywords
// take precedence over low-priority ones wherever both appear.
func detectPriority(text string) Priority {
	if highPriorityRe.MatchString(text) {
		return PriorityHigh
	}
	if lowPriorityRe.MatchString(text) {
		return PriorityLow
	}
	return PriorityMedium
}
