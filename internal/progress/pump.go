package progress

import (
	"context"
	"log/slog"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
	"github.com/nimishchaudhari/aider-resolver/internal/logging"
)

// Pump drains the engine's event channel into the tracker and pushes a
// fresh render to the sink after every event. It returns when the channel
// closes or the context is cancelled. Sink errors are logged and skipped;
// reporting failures never interrupt the job.
func Pump(ctx context.Context, jobID string, events <-chan executor.ProgressEvent, tracker *Tracker, sink Sink) {
	log := logging.WithComponent("progress")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			tracker.Apply(ev)
			if sink == nil {
				continue
			}
			if err := sink.CreateOrUpdateProgressDocument(ctx, jobID, tracker.Render(jobID)); err != nil {
				log.Warn("Progress push failed",
					slog.String("job_id", jobID),
					slog.String("step", ev.Step),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
