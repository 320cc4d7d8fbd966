package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoopDriver is the in-process fallback iteration driver: one lightweight
// timer per pending iteration instead of a durable queue job. Stop-condition
// and stake-adjustment semantics are identical because both drivers funnel
// into the same RunIteration.
type LoopDriver struct {
	Autobet *AutoBetService
	Log     *zap.Logger
}

func NewLoopDriver(log *zap.Logger) *LoopDriver {
	return &LoopDriver{Log: log}
}

// Bind wires the driver back to the service. Needed because the service and
// its fallback driver reference each other.
func (d *LoopDriver) Bind(s *AutoBetService) {
	d.Autobet = s
}

func (d *LoopDriver) Schedule(ctx context.Context, sessionID uint, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		if err := d.Autobet.RunIteration(context.Background(), sessionID); err != nil {
			d.Log.Error("in-process iteration failed",
				zap.Uint("session_id", sessionID), zap.Error(err))
		}
	})
	return nil
}
