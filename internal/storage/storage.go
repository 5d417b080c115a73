package storage

import (
	"context"

	"hedgeScope/internal/model"
)

// Journal is an append-only audit sink for committed lifecycle events.
type Journal interface {
	Record(ctx context.Context, event model.PositionEvent) error
}

// PositionSink mirrors position records into durable storage.
type PositionSink interface {
	UpsertPosition(ctx context.Context, pos model.LeveragedPosition) error
}

// HedgedSink mirrors hedged composite records into durable storage.
type HedgedSink interface {
	UpsertHedgedPositions(ctx context.Context, positions []model.HedgedPosition) error
}
