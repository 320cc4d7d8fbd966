package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"casino-engine/internal/services"
)

type Worker struct {
	Autobet *services.AutoBetService
}

func NewWorker(autobet *services.AutoBetService) *Worker {
	return &Worker{Autobet: autobet}
}

// HandleAutoBetIteration runs one session cycle. RunIteration owns failure
// handling (a failed settlement terminates the session), so the task itself
// never requeues.
func (w *Worker) HandleAutoBetIteration(ctx context.Context, t *asynq.Task) error {
	var p AutoBetIterationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.Autobet.RunIteration(ctx, p.SessionID); err != nil {
		return fmt.Errorf("iteration %d failed: %v: %w", p.SessionID, err, asynq.SkipRetry)
	}
	return nil
}

func StartWorker(redisOpt asynq.RedisClientOpt, autobet *services.AutoBetService) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// Stateless workers; per-user serialization comes from session
			// chaining, not from the pool size.
			Concurrency: 10,
			Queues: map[string]int{
				"autobet": 6,
				"default": 3,
				"low":     1,
			},
		},
	)

	worker := NewWorker(autobet)
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeAutoBetIteration, worker.HandleAutoBetIteration)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
