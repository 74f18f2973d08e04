package storage

import "context"

// MirrorCursorStore persists, per tracked address, the newest transaction
// signature the mirror has already processed. This enables resumption
// after restarts without replaying or duplicating swaps.
type MirrorCursorStore interface {
	// GetCursor returns the last processed signature for a tracked
	// address. Returns ErrNotFound if no cursor has been saved yet.
	GetCursor(ctx context.Context, trackedAddress string) (string, error)

	// SetCursor saves the last processed signature for a tracked address.
	SetCursor(ctx context.Context, trackedAddress, signature string) error
}
