package postgres

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/storage"
)

// MirrorCursorStore implements storage.MirrorCursorStore using PostgreSQL.
type MirrorCursorStore struct {
	pool *Pool
}

// NewMirrorCursorStore creates a new MirrorCursorStore.
func NewMirrorCursorStore(pool *Pool) *MirrorCursorStore {
	return &MirrorCursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MirrorCursorStore = (*MirrorCursorStore)(nil)

// GetCursor returns the last processed signature for a tracked address.
func (s *MirrorCursorStore) GetCursor(ctx context.Context, trackedAddress string) (string, error) {
	query := `SELECT signature FROM mirror_cursors WHERE tracked_address = $1`

	var sig string
	if err := s.pool.QueryRow(ctx, query, trackedAddress).Scan(&sig); err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get mirror cursor: %w", err)
	}
	return sig, nil
}

// SetCursor saves the last processed signature for a tracked address.
func (s *MirrorCursorStore) SetCursor(ctx context.Context, trackedAddress, signature string) error {
	if trackedAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO mirror_cursors (tracked_address, signature, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tracked_address) DO UPDATE
		SET signature = EXCLUDED.signature, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, trackedAddress, signature); err != nil {
		return fmt.Errorf("set mirror cursor: %w", err)
	}
	return nil
}
