package id

import "github.com/google/uuid"

// New returns a time-ordered run identifier. It is used as the asynq task
// ID, so enqueueing the same run twice is rejected by the queue.
func New() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return v7.String()
}
