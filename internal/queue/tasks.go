package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const TypeGenerateThumbnail = "thumbnail:generate"

var ErrInvalidPayload = errors.New("invalid thumbnail payload")

type GenerateThumbnailPayload struct {
	RunID       string    `json:"run_id"`
	SourcePath  string    `json:"source_path"`
	Brand       string    `json:"brand"`
	RequestedAt time.Time `json:"requested_at"`
}

func (p GenerateThumbnailPayload) Validate() error {
	if strings.TrimSpace(p.SourcePath) == "" {
		return fmt.Errorf("%w: source_path is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Brand) == "" {
		return fmt.Errorf("%w: brand is required", ErrInvalidPayload)
	}
	return nil
}

func NewGenerateThumbnailTask(payload GenerateThumbnailPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal thumbnail payload: %w", err)
	}
	return asynq.NewTask(TypeGenerateThumbnail, body), nil
}

func ParseGenerateThumbnailPayload(task *asynq.Task) (GenerateThumbnailPayload, error) {
	var payload GenerateThumbnailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return GenerateThumbnailPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := payload.Validate(); err != nil {
		return GenerateThumbnailPayload{}, err
	}
	return payload, nil
}
