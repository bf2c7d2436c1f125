package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
)

// Styles for terminal progress output
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

var _ Sink = (*Display)(nil)

// Display renders job progress to the terminal for one-shot CLI runs.
// It implements Sink: each document push redraws the step list in place,
// and the final result prints a summary below it.
type Display struct {
	mu        sync.Mutex
	enabled   bool
	startTime time.Time
	lastLines int
}

// NewDisplay creates a terminal display. When enabled is false every
// method is a no-op, so callers can pass one unconditionally.
func NewDisplay(enabled bool) *Display {
	return &Display{
		enabled:   enabled,
		startTime: time.Now(),
	}
}

// CreateOrUpdateProgressDocument redraws the rendered document in place.
func (d *Display) CreateOrUpdateProgressDocument(_ context.Context, jobID, renderedText string) error {
	if !d.enabled {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.lastLines; i++ {
		fmt.Print("\033[A\033[K")
	}

	lines := strings.Split(strings.TrimRight(renderedText, "\n"), "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			fmt.Println(headerStyle.Render(line))
		case strings.HasPrefix(line, "_"):
			fmt.Println(dimStyle.Render(line))
		default:
			fmt.Println(line)
		}
	}
	d.lastLines = len(lines)
	return nil
}

// PublishFinalResult prints the final job summary.
func (d *Display) PublishFinalResult(_ context.Context, jobID string, result *executor.Result, _ string) error {
	if !d.enabled {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	duration := time.Since(d.startTime).Round(time.Second)
	fmt.Println()
	if result.Success {
		fmt.Printf("%s %s in %s\n", okStyle.Render("✓ Completed"), jobID, duration)
	} else {
		fmt.Printf("%s %s in %s: %s\n", errStyle.Render("✗ Failed"), jobID, duration, result.ErrorMessage)
	}

	if len(result.ChangedFiles) > 0 {
		fmt.Println(dimStyle.Render("  changed files:"))
		for _, f := range result.ChangedFiles {
			fmt.Printf("  %s\n", dimStyle.Render(f))
		}
	}
	if result.CommitID != "" {
		fmt.Printf("  %s\n", dimStyle.Render("commit "+result.CommitID))
	}
	fmt.Printf("  %s\n", dimStyle.Render(fmt.Sprintf("cost $%.4f, model %s", result.CostUsed, result.ModelUsed)))
	return nil
}
