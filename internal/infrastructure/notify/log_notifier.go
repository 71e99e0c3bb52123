package notify

import (
	"context"
	"log"
)

// LogNotifier satisfies the completion-notification port by logging. The
// production deployment swaps in a mail or webhook dispatcher behind the
// same port; the processor only guarantees the dispatch is requested once.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyCompletion(ctx context.Context, jobID string) error {
	_ = ctx
	log.Printf("import job %s completed", jobID)
	return nil
}
