package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sitecomply/sitecomply/internal/compliance"
)

// Notifier enqueues compliance events as background notification tasks. It is
// fire-and-forget: enqueue failures are logged and never surface to the
// operation that produced the event.
type Notifier struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewNotifier constructs a Notifier backed by an Asynq client.
func NewNotifier(client *asynq.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger}
}

func (n *Notifier) SubmissionReceived(ctx context.Context, sub compliance.Submission) {
	n.enqueue(ctx, NotifyPayload{
		Kind:            NotifySubmissionReceived,
		PeriodID:        sub.PeriodID,
		SubcontractorID: sub.SubcontractorID,
		RequirementID:   sub.RequirementID,
		Detail:          sub.DocumentName,
	})
}

func (n *Notifier) SubmissionFlagged(ctx context.Context, sub compliance.Submission) {
	n.enqueue(ctx, NotifyPayload{
		Kind:            NotifySubmissionFlagged,
		PeriodID:        sub.PeriodID,
		SubcontractorID: sub.SubcontractorID,
		RequirementID:   sub.RequirementID,
		Detail:          sub.FlagNote,
	})
}

func (n *Notifier) StatusAssigned(ctx context.Context, st compliance.Status) {
	n.enqueue(ctx, NotifyPayload{
		Kind:            NotifyStatusAssigned,
		PeriodID:        st.PeriodID,
		SubcontractorID: st.SubcontractorID,
		Detail:          string(st.State),
	})
}

func (n *Notifier) enqueue(ctx context.Context, payload NotifyPayload) {
	if n == nil || n.client == nil {
		return
	}
	task, err := NewNotifyTask(payload)
	if err != nil {
		n.logger.Warn("notify: encode payload", slog.Any("error", err))
		return
	}
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		n.logger.Warn("notify: enqueue",
			slog.String("kind", payload.Kind),
			slog.Any("error", err))
	}
}
