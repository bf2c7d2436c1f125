package progress

import (
	"context"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
)

// Sink receives rendered progress documents and final results. The first
// push for a job creates the document; later pushes edit it in place. The
// sink owns that transport identity; the tracker only renders and pushes.
type Sink interface {
	CreateOrUpdateProgressDocument(ctx context.Context, jobID, renderedText string) error
	PublishFinalResult(ctx context.Context, jobID string, result *executor.Result, reviewer string) error
}
