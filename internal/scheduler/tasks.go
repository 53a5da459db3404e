package scheduler

import (
	"encoding/json"

	"crm_pipeline_backend/internal/email"

	"github.com/hibiken/asynq"
)

const TaskAlertScan = "pipeline.alerts.scan"

const TaskDailySummary = "pipeline.alerts.daily_summary"

const TaskReversalSweep = "pipeline.reversal.sweep"

const TaskNotificationEmail = "notification.email.send"

// PeriodicTasks lists the payload-free pipeline jobs driven by cron.
var PeriodicTasks = []string{TaskAlertScan, TaskDailySummary, TaskReversalSweep}

func NewPipelineTask(taskType string) *asynq.Task {
	return asynq.NewTask(taskType, nil)
}

func NewNotificationEmailTask(msg email.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationEmail, data), nil
}

func ParseNotificationEmailPayload(task *asynq.Task) (email.Message, error) {
	var payload email.Message
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return email.Message{}, err
	}
	return payload, nil
}
