package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// FillStore implements storage.FillStore using ClickHouse. Fills are
// append-only; MergeTree does not enforce uniqueness, duplicates are
// tolerated and collapse in aggregation queries via distinct signatures.
type FillStore struct {
	conn *Conn
}

// NewFillStore creates a new FillStore.
func NewFillStore(conn *Conn) *FillStore {
	return &FillStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)

// InsertFill appends one executed fill.
func (s *FillStore) InsertFill(ctx context.Context, rec *domain.SwapRecord) error {
	return s.InsertFillBulk(ctx, []*domain.SwapRecord{rec})
}

// InsertFillBulk appends a batch of executed fills.
func (s *FillStore) InsertFillBulk(ctx context.Context, recs []*domain.SwapRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_fills", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_fills (
			tx_signature, user_id, origin, input_mint, output_mint,
			in_amount, out_amount, fee_lamports, executed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range recs {
		err = batch.Append(
			rec.TxSignature,
			rec.UserID,
			string(rec.Origin),
			rec.InputMint,
			rec.OutputMint,
			rec.InAmount,
			rec.OutAmount,
			rec.FeeLamports,
			rec.ExecutedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// OriginTotals summarizes fill activity for one swap origin. Served
// verbatim on the engine's status endpoint.
type OriginTotals struct {
	Origin      string `json:"origin"`
	Fills       uint64 `json:"fills"`
	FeeLamports uint64 `json:"fee_lamports"`
}

// TotalsByOrigin aggregates fills executed at or after since, grouped
// by origin. Duplicate appends of the same signature count once.
func (s *FillStore) TotalsByOrigin(ctx context.Context, since time.Time) ([]OriginTotals, error) {
	query := `
		SELECT origin, count(DISTINCT tx_signature), sum(fee_lamports)
		FROM (
			SELECT origin, tx_signature, any(fee_lamports) AS fee_lamports
			FROM swap_fills
			WHERE executed_at >= ?
			GROUP BY origin, tx_signature
		)
		GROUP BY origin
		ORDER BY origin
	`

	rows, err := s.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query totals by origin: %w", err)
	}
	defer rows.Close()

	var totals []OriginTotals
	for rows.Next() {
		var t OriginTotals
		if err := rows.Scan(&t.Origin, &t.Fills, &t.FeeLamports); err != nil {
			return nil, fmt.Errorf("scan totals row: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals rows: %w", err)
	}
	return totals, nil
}
