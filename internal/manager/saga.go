package manager

import (
	"context"

	"go.uber.org/zap"
)

// saga is a compensation log. Each external step pushes its undo; on
// failure the steps unwind in reverse so the whole sequence behaves
// all-or-nothing even without an atomic substrate.
type saga struct {
	logger *zap.Logger
	steps  []sagaStep
}

type sagaStep struct {
	name string
	undo func(ctx context.Context) error
}

func newSaga(logger *zap.Logger) *saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saga{logger: logger}
}

func (s *saga) push(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, sagaStep{name: name, undo: undo})
}

// unwind runs every compensation in reverse order. Compensation failures
// are logged and do not stop later undos.
func (s *saga) unwind(ctx context.Context) {
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			s.logger.Warn("compensation failed", zap.String("step", step.name), zap.Error(err))
		}
	}
	s.steps = nil
}
