package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// SwapRecordStore implements storage.SwapRecordStore using PostgreSQL.
type SwapRecordStore struct {
	pool *Pool
}

// NewSwapRecordStore creates a new SwapRecordStore.
func NewSwapRecordStore(pool *Pool) *SwapRecordStore {
	return &SwapRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)

const swapRecordColumns = `
	tx_signature, user_id, wallet_address, input_mint, output_mint,
	in_amount, out_amount, fee_lamports, origin, executed_at
`

// Insert adds a new record. Returns ErrDuplicateKey if the transaction
// signature exists.
func (s *SwapRecordStore) Insert(ctx context.Context, rec *domain.SwapRecord) error {
	query := `
		INSERT INTO swap_records (
			tx_signature, user_id, wallet_address, input_mint, output_mint,
			in_amount, out_amount, fee_lamports, origin, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.TxSignature,
		rec.UserID,
		rec.WalletAddress,
		rec.InputMint,
		rec.OutputMint,
		int64(rec.InAmount),
		int64(rec.OutAmount),
		int64(rec.FeeLamports),
		string(rec.Origin),
		rec.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap record: %w", err)
	}
	return nil
}

// GetBySignature retrieves a record by transaction signature.
func (s *SwapRecordStore) GetBySignature(ctx context.Context, signature string) (*domain.SwapRecord, error) {
	query := `SELECT ` + swapRecordColumns + ` FROM swap_records WHERE tx_signature = $1`

	rec, err := scanSwapRecord(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get swap record by signature: %w", err)
	}
	return rec, nil
}

// GetByUser retrieves records for a user, newest first, capped at limit
// (0 means no cap).
func (s *SwapRecordStore) GetByUser(ctx context.Context, userID int64, limit int) ([]*domain.SwapRecord, error) {
	query := `
		SELECT ` + swapRecordColumns + `
		FROM swap_records
		WHERE user_id = $1
		ORDER BY executed_at DESC, tx_signature DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get swap records by user: %w", err)
	}
	defer rows.Close()

	var recs []*domain.SwapRecord
	for rows.Next() {
		rec, err := scanSwapRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap record row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap record rows: %w", err)
	}
	return recs, nil
}

// scanSwapRecord scans a single row into a SwapRecord.
func scanSwapRecord(row pgx.Row) (*domain.SwapRecord, error) {
	var rec domain.SwapRecord
	var inAmount, outAmount, fee int64
	var origin string

	err := row.Scan(
		&rec.TxSignature,
		&rec.UserID,
		&rec.WalletAddress,
		&rec.InputMint,
		&rec.OutputMint,
		&inAmount,
		&outAmount,
		&fee,
		&origin,
		&rec.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.InAmount = uint64(inAmount)
	rec.OutAmount = uint64(outAmount)
	rec.FeeLamports = uint64(fee)
	rec.Origin = domain.SwapOrigin(origin)
	return &rec, nil
}
