package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"sacco/internal/core"
)

// ReminderJob asks the worker to trigger the backend's dues reminders for a
// period. ID lets the worker log and deduplicate redeliveries.
type ReminderJob struct {
	ID        string    `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReminderJob(req core.ReminderRequest, requestID string) *ReminderJob {
	return &ReminderJob{
		ID:        uuid.NewString(),
		Year:      req.Year,
		Month:     req.Month,
		Message:   req.Message,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// Request returns the backend payload carried by the job.
func (j *ReminderJob) Request() core.ReminderRequest {
	return core.ReminderRequest{Year: j.Year, Month: j.Month, Message: j.Message}
}

func (j *ReminderJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

func ReminderJobFromJSON(data []byte) (*ReminderJob, error) {
	var job ReminderJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	if err := job.Request().Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}
