package executor

import (
	"regexp"
)

// StepStatus is the lifecycle state of one progress step.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusFailed     StepStatus = "failed"
)

// Canonical step keys emitted by the engine. The progress tracker renders
// these in a fixed order; unknown keys are appended in first-seen order.
const (
	StepSetup    = "setup"
	StepAnalysis = "analysis"
	StepChanges  = "changes"
	StepApply    = "apply"
	StepCommit   = "commit"
	StepFinalize = "finalize"
)

// ProgressEvent is one discrete lifecycle event parsed from the backend's
// output stream. Events are ephemeral: consumed immediately by the
// progress reporter and never queried back.
type ProgressEvent struct {
	Step    string
	Status  StepStatus
	Message string
}

// lineMatcher translates an output line into a progress event. Matchers
// are evaluated in order and the first match wins; lines matching nothing
// produce no event and pass silently into the output buffer.
type lineMatcher struct {
	pattern *regexp.Regexp
	step    string
	status  StepStatus
	message string
}

var lineMatchers = []lineMatcher{
	{
		pattern: regexp.MustCompile(`(?i)^Aider v[\d.]`),
		step:    StepSetup,
		status:  StatusCompleted,
		message: "aider started",
	},
	{
		pattern: regexp.MustCompile(`(?i)^(Repo-map|Scanning repo|Analyzing (the )?repo)`),
		step:    StepAnalysis,
		status:  StatusInProgress,
		message: "analyzing repository",
	},
	{
		pattern: regexp.MustCompile(`(?i)^Added \S+ to the chat`),
		step:    StepAnalysis,
		status:  StatusCompleted,
		message: "repository context loaded",
	},
	{
		pattern: regexp.MustCompile(`(?i)^(Thinking|Generating|Proposing|Requesting) `),
		step:    StepChanges,
		status:  StatusInProgress,
		message: "generating changes",
	},
	{
		pattern: regexp.MustCompile(`(?i)^(Applied edit to|Applying edits)`),
		step:    StepApply,
		status:  StatusInProgress,
		message: "applying edits",
	},
	{
		pattern: regexp.MustCompile(`(?i)^Commit [0-9a-f]{7,40}`),
		step:    StepCommit,
		status:  StatusCompleted,
		message: "changes committed",
	},
	{
		pattern: regexp.MustCompile(`(?i)^(Error|Traceback|litellm\.)`),
		step:    StepChanges,
		status:  StatusFailed,
		message: "backend reported an error",
	},
}

// matchLine scans a single output line against the marker table.
// The bool result reports whether a lifecycle event was recognized.
func matchLine(line string) (ProgressEvent, bool) {
	for _, m := range lineMatchers {
		if m.pattern.MatchString(line) {
			return ProgressEvent{Step: m.step, Status: m.status, Message: m.message}, true
		}
	}
	return ProgressEvent{}, false
}

var (
	// changedFileRe extracts file paths the backend reports as touched.
	changedFileRe = regexp.MustCompile(`(?m)^(?:Modified|Created|Updated):\s+(\S+)`)

	// commitRe extracts the commit identifier the backend prints after
	// committing its edits.
	commitRe = regexp.MustCompile(`(?m)^Commit ([0-9a-f]{7,40})`)
)

// scanChangedFiles returns the changed-file paths found in the full output
// buffer, in order of appearance, de-duplicated.
func scanChangedFiles(output string) []string {
	matches := changedFileRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		files = append(files, m[1])
	}
	return files
}

// scanCommitID returns the first commit identifier in the output buffer,
// or empty when none was printed.
func scanCommitID(output string) string {
	if m := commitRe.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}
