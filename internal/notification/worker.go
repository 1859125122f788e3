package notification

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/beckahex-jpg/charitymarket/internal/metrics"
)

// EmailQueue hands jobs to the send worker without blocking the caller.
type EmailQueue interface {
	Enqueue(job EmailJob) bool
}

// EmailWorker owns the outbound email channel. Transitions commit first and
// the dispatcher only ever enqueues, so email latency and provider failures
// never reach the order path.
type EmailWorker struct {
	sender EmailSender
	jobs   chan EmailJob
}

func NewEmailWorker(sender EmailSender, queueSize int) *EmailWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &EmailWorker{
		sender: sender,
		jobs:   make(chan EmailJob, queueSize),
	}
}

// Enqueue never blocks; a full queue drops the job and counts it.
func (w *EmailWorker) Enqueue(job EmailJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		metrics.EmailsFailedTotal.Inc()
		log.Warn().Str("to", job.To).Str("subject", job.Subject).Msg("email: queue full, dropping job")
		return false
	}
}

// Run consumes jobs until ctx is cancelled. Failed sends are logged and
// counted, never retried.
func (w *EmailWorker) Run(ctx context.Context) {
	log.Info().Msg("email: worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("email: worker stopped")
			return
		case job := <-w.jobs:
			if err := w.sender.Send(ctx, job.To, job.Subject, job.HTML); err != nil {
				metrics.EmailsFailedTotal.Inc()
				log.Error().Err(err).Str("to", job.To).Str("subject", job.Subject).Msg("email: send failed")
				continue
			}
			metrics.EmailsSentTotal.Inc()
			log.Debug().Str("to", job.To).Str("subject", job.Subject).Msg("email: sent")
		}
	}
}
