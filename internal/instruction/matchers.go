package instruction

import (
	"regexp"
	"strings"
)

// labelMatcher pairs a line pattern with the field it populates. Matchers
// run in order against the instruction body; each applies only the first
// match for its label so repeated labels are ignored.
type labelMatcher struct {
	pattern *regexp.Regexp
	apply   func(body string, instr *Instruction)
}

var (
	// fileLabelRe matches lines like "files: a.go, b.go" or "in: src/".
	fileLabelRe = regexp.MustCompile(`(?im)^\s*(?:files?|in)\s*:\s*(.+)$`)

	// modelLabelRe matches lines like "model: gpt-4o" or "using: deepseek".
	modelLabelRe = regexp.MustCompile(`(?im)^\s*(?:model|using)\s*:\s*(\S+)`)

	// highPriorityRe marks an instruction as high priority anywhere in the
	// source text. Wins over low-priority keywords.
	highPriorityRe = regexp.MustCompile(`(?i)\b(urgent|critical|asap|emergency|immediately|blocker|high[ -]priority)\b`)

	// lowPriorityRe marks an instruction as low priority.
	lowPriorityRe = regexp.MustCompile(`(?i)\b(minor|trivial|simple|whenever|someday|low[ -]priority|no rush)\b`)
)

var labelMatchers = []labelMatcher{
	{
		pattern: fileLabelRe,
		apply: func(body string, instr *Instruction) {
			m := fileLabelRe.FindStringSubmatch(body)
			if m == nil {
				return
			}
			instr.Files = splitFileList(m[1])
		},
	},
	{
		pattern: modelLabelRe,
		apply: func(body string, instr *Instruction) {
			m := modelLabelRe.FindStringSubmatch(body)
			if m == nil {
				return
			}
			instr.Model = strings.ToLower(m[1])
		},
	},
}

// splitFileList splits a comma-separated file label value, trimming
// whitespace and dropping empty entries.
func splitFileList(value string) []string {
	parts := strings.Split(value, ",")
	files := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		files = append(files, p)
	}
	if len(files) == 0 {
		return nil
	}
	return files
}
