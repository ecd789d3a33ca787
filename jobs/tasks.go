package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskComplianceDailyPass triggers the multi-company compliance pass.
	TaskComplianceDailyPass = "compliance:daily_pass"
	// TaskNotifyCompliance delivers a compliance event notification.
	TaskNotifyCompliance = "notify:compliance"
)

// Notification event kinds.
const (
	NotifySubmissionReceived = "submission_received"
	NotifySubmissionFlagged  = "submission_flagged"
	NotifyStatusAssigned     = "status_assigned"
)

// NotifyPayload describes a compliance event worth telling someone about.
type NotifyPayload struct {
	Kind            string `json:"kind"`
	PeriodID        string `json:"period_id"`
	SubcontractorID string `json:"subcontractor_id"`
	RequirementID   string `json:"requirement_id,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// NewDailyPassTask constructs the scheduler trigger task. It carries no
// payload: the pass derives everything from the clock and the database.
func NewDailyPassTask() *asynq.Task {
	return asynq.NewTask(TaskComplianceDailyPass, nil)
}

// NewNotifyTask constructs a notification task.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyCompliance, data), nil
}

// HandleNotifyTask processes TaskNotifyCompliance tasks. Delivery today is a
// structured log line; the payload shape is what an email or webhook sender
// would consume.
func HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Info("compliance notification",
		slog.String("kind", payload.Kind),
		slog.String("period_id", payload.PeriodID),
		slog.String("subcontractor_id", payload.SubcontractorID),
		slog.String("requirement_id", payload.RequirementID),
		slog.String("detail", payload.Detail))
	return nil
}
