package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBatchSize  = 50
	DefaultMaxRetries = 3

	maxRetriesMessage = "max retries reached"
)

// Sender delivers one reminder. Implementations render and send the email.
type Sender interface {
	SendReminder(ctx context.Context, e ScheduledEmail) error
}

type DispatchOptions struct {
	DryRun     bool
	BatchSize  int
	MaxRetries int
}

type DispatchResult struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int
}

type Dispatcher struct {
	repo   Repository
	sender Sender
	logger *zap.Logger
	now    func() time.Time
}

func NewDispatcher(repo Repository, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, sender: sender, logger: logger, now: time.Now}
}

// Run sends every due pending reminder, oldest first, up to BatchSize.
// A failure on one entry is recorded on that entry and does not stop the
// batch; only failing to load the batch is returned as an error.
func (d *Dispatcher) Run(ctx context.Context, opts DispatchOptions) (DispatchResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}

	due, err := d.repo.ListDue(ctx, d.now(), opts.BatchSize)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("list due reminders: %w", err)
	}

	res := DispatchResult{Due: len(due)}
	for _, e := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		log := d.logger.With(
			zap.String("reminder_id", e.ID.String()),
			zap.String("appointment_id", e.AppointmentID.String()),
			zap.String("email_type", string(e.EmailType)),
		)

		if e.RetryCount >= opts.MaxRetries {
			res.Skipped++
			if opts.DryRun {
				log.Info("dry run: would mark failed", zap.Int("retry_count", e.RetryCount))
				continue
			}
			if err := d.repo.MarkFailed(ctx, e.ID, maxRetriesMessage); err != nil {
				log.Error("mark failed", zap.Error(err))
				continue
			}
			log.Warn("reminder gave up", zap.Int("retry_count", e.RetryCount))
			continue
		}

		if opts.DryRun {
			log.Info("dry run: would send", zap.String("recipient", e.RecipientEmail))
			res.Sent++
			continue
		}

		if sendErr := d.sender.SendReminder(ctx, e); sendErr != nil {
			res.Failed++
			updated, err := d.repo.RecordFailure(ctx, e.ID, sendErr.Error(), opts.MaxRetries)
			if err != nil {
				log.Error("record reminder failure", zap.Error(err), zap.NamedError("send_error", sendErr))
				continue
			}
			log.Warn("reminder send failed",
				zap.Error(sendErr),
				zap.Int("retry_count", updated.RetryCount),
				zap.String("status", string(updated.Status)),
			)
			continue
		}

		if err := d.repo.MarkSent(ctx, e.ID, d.now()); err != nil {
			// the email went out; a failed bookkeeping write only risks a duplicate
			log.Error("mark reminder sent", zap.Error(err))
		}
		res.Sent++
	}

	d.logger.Info("reminder batch done",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("due", res.Due),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
