package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeAutoBetIteration = "autobet-iteration"
)

type AutoBetIterationPayload struct {
	SessionID uint `json:"session_id"`
}

func NewAutoBetIterationTask(sessionID uint) (*asynq.Task, error) {
	data, err := json.Marshal(AutoBetIterationPayload{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAutoBetIteration, data), nil
}

// AsynqDriver schedules autobet iterations on the durable queue. Each
// session chains its own iterations, so at most one task per session is
// pending at any time.
type AsynqDriver struct {
	Client *asynq.Client
}

func NewAsynqDriver(client *asynq.Client) *AsynqDriver {
	return &AsynqDriver{Client: client}
}

func (d *AsynqDriver) Schedule(ctx context.Context, sessionID uint, delay time.Duration) error {
	task, err := NewAutoBetIterationTask(sessionID)
	if err != nil {
		return err
	}
	_, err = d.Client.EnqueueContext(ctx, task,
		asynq.Queue("autobet"),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
	)
	return err
}
