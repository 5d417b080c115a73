package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hedgeScope/internal/model"
	"hedgeScope/internal/storage"
)

// Store provides Postgres persistence for positions and their audit trail.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ storage.Journal      = (*Store)(nil)
	_ storage.PositionSink = (*Store)(nil)
	_ storage.HedgedSink   = (*Store)(nil)
)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPosition mirrors one position record.
func (s *Store) UpsertPosition(ctx context.Context, pos model.LeveragedPosition) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (
			owner_address, position_id, base_asset, leveraged_asset,
			supplied, leverage, borrowed_at_open, state, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		ON CONFLICT (owner_address, position_id)
		DO UPDATE SET
			borrowed_at_open = EXCLUDED.borrowed_at_open,
			state = EXCLUDED.state,
			updated_at = now()
	`,
		pos.Owner.Hex(),
		int64(pos.ID),
		pos.BaseAsset.Hex(),
		pos.LeveragedAsset.Hex(),
		pos.SuppliedAmount.Dec(),
		pos.Leverage.Dec(),
		pos.BorrowedAtOpen.Dec(),
		pos.State.String(),
	)
	return err
}

// UpsertHedgedPositions mirrors hedged composite records in one batch.
func (s *Store) UpsertHedgedPositions(ctx context.Context, positions []model.HedgedPosition) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pos := range positions {
		batch.Queue(`
			INSERT INTO hedged_positions (
				owner_address, hedged_id, lp_token_id, short_id,
				amount0, amount1, lp_value, short_value, active, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
			ON CONFLICT (owner_address, hedged_id)
			DO UPDATE SET
				active = EXCLUDED.active,
				updated_at = now()
		`,
			pos.Owner.Hex(),
			int64(pos.ID),
			int64(pos.LPTokenID),
			int64(pos.ShortID),
			pos.Amount0.Dec(),
			pos.Amount1.Dec(),
			pos.LPValue.Dec(),
			pos.ShortValue.Dec(),
			pos.Active,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range positions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListPositions returns every mirrored position for an owner in id order.
func (s *Store) ListPositions(ctx context.Context, owner string) ([]model.LeveragedPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT owner_address, position_id, base_asset, leveraged_asset,
		       supplied, leverage, borrowed_at_open, state
		FROM positions
		WHERE owner_address = $1
		ORDER BY position_id ASC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LeveragedPosition
	for rows.Next() {
		var (
			ownerHex, baseHex, levHex          string
			id                                 int64
			supplied, leverage, borrowed, state string
		)
		if err := rows.Scan(&ownerHex, &id, &baseHex, &levHex, &supplied, &leverage, &borrowed, &state); err != nil {
			return nil, err
		}

		pos, err := rowToPosition(ownerHex, id, baseHex, levHex, supplied, leverage, borrowed, state)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

// Record appends one audit event, satisfying storage.Journal.
func (s *Store) Record(ctx context.Context, event model.PositionEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO position_events (
			kind, owner_address, position_id, base_asset, asset,
			supplied, borrowed, payout, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		event.Kind,
		event.Owner,
		int64(event.PositionID),
		event.BaseAsset,
		event.Asset,
		event.Supplied,
		event.Borrowed,
		event.Payout,
		event.RecordedAt,
	)
	return err
}

func rowToPosition(ownerHex string, id int64, baseHex, levHex, supplied, leverage, borrowed, state string) (model.LeveragedPosition, error) {
	suppliedAmount, err := uint256.FromDecimal(supplied)
	if err != nil {
		return model.LeveragedPosition{}, fmt.Errorf("parse supplied: %w", err)
	}
	leverageAmount, err := uint256.FromDecimal(leverage)
	if err != nil {
		return model.LeveragedPosition{}, fmt.Errorf("parse leverage: %w", err)
	}
	borrowedAmount, err := uint256.FromDecimal(borrowed)
	if err != nil {
		return model.LeveragedPosition{}, fmt.Errorf("parse borrowed: %w", err)
	}

	pos := model.LeveragedPosition{
		ID:             uint64(id),
		SuppliedAmount: suppliedAmount,
		Leverage:       leverageAmount,
		BorrowedAtOpen: borrowedAmount,
	}
	pos.Owner = common.HexToAddress(ownerHex)
	pos.BaseAsset = common.HexToAddress(baseHex)
	pos.LeveragedAsset = common.HexToAddress(levHex)
	pos.State = stateFromString(state)
	return pos, nil
}

func stateFromString(s string) model.PositionState {
	switch s {
	case "pending":
		return model.StatePending
	case "open":
		return model.StateOpen
	case "closing":
		return model.StateClosing
	default:
		return model.StateClosed
	}
}
