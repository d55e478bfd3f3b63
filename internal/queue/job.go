package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies what a worker should do with a job
type JobType string

const (
	// JobTypeGenerateDescription asks the workflow webhook to describe a todo
	// that was created without a description.
	JobTypeGenerateDescription JobType = "generate_description"
)

// Job is the message body published to the queue
type Job struct {
	ID        uuid.UUID         `json:"id"`
	Type      JobType           `json:"type"`
	TodoID    int64             `json:"todo_id"`
	UserID    int64             `json:"user_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewJob creates a job for the given todo
func NewJob(jobType JobType, userID, todoID int64) *Job {
	return &Job{
		ID:        uuid.New(),
		Type:      jobType,
		TodoID:    todoID,
		UserID:    userID,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
}

// Age reports how long ago the job was created
func (j *Job) Age(now time.Time) time.Duration {
	return now.Sub(j.CreatedAt)
}
