package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// SnipeJobStore implements storage.SnipeJobStore using PostgreSQL.
type SnipeJobStore struct {
	pool *Pool
}

// NewSnipeJobStore creates a new SnipeJobStore.
func NewSnipeJobStore(pool *Pool) *SnipeJobStore {
	return &SnipeJobStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnipeJobStore = (*SnipeJobStore)(nil)

const snipeJobColumns = `
	id, user_id, target_mint, buy_amount_lamports, max_slippage_bps,
	status, attempts, tx_signature, created_at, updated_at
`

// Insert adds a new job. Returns ErrDuplicateKey if the job ID exists.
func (s *SnipeJobStore) Insert(ctx context.Context, job *domain.SnipeJob) error {
	query := `
		INSERT INTO snipe_jobs (
			id, user_id, target_mint, buy_amount_lamports, max_slippage_bps,
			status, attempts, tx_signature, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`

	_, err := s.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.TargetMint,
		int64(job.BuyAmountLamports),
		job.MaxSlippageBps,
		string(job.Status),
		job.Attempts,
		job.TxSignature,
		job.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snipe job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID. Returns ErrNotFound if not exists.
func (s *SnipeJobStore) GetByID(ctx context.Context, jobID string) (*domain.SnipeJob, error) {
	query := `SELECT ` + snipeJobColumns + ` FROM snipe_jobs WHERE id = $1`

	job, err := scanSnipeJob(s.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snipe job by id: %w", err)
	}
	return job, nil
}

// GetByUser retrieves all jobs for a user, newest first.
func (s *SnipeJobStore) GetByUser(ctx context.Context, userID int64) ([]*domain.SnipeJob, error) {
	query := `
		SELECT ` + snipeJobColumns + `
		FROM snipe_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get snipe jobs by user: %w", err)
	}
	defer rows.Close()

	return scanSnipeJobs(rows)
}

// GetActiveByTarget retrieves active jobs targeting the mint, including
// wildcard jobs.
func (s *SnipeJobStore) GetActiveByTarget(ctx context.Context, mint string) ([]*domain.SnipeJob, error) {
	query := `
		SELECT ` + snipeJobColumns + `
		FROM snipe_jobs
		WHERE status = $1 AND (target_mint = $2 OR target_mint = $3)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.SnipeJobActive), mint, domain.SnipeTargetAny)
	if err != nil {
		return nil, fmt.Errorf("get active snipe jobs: %w", err)
	}
	defer rows.Close()

	return scanSnipeJobs(rows)
}

// UpdateStatusIf atomically transitions a job between statuses. The
// conditional UPDATE is the single-trigger guarantee: of two racing
// transitions, exactly one matches the expected status.
func (s *SnipeJobStore) UpdateStatusIf(ctx context.Context, jobID string, from, to domain.SnipeJobStatus) (bool, error) {
	query := `
		UPDATE snipe_jobs
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := s.pool.Exec(ctx, query, jobID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("update snipe job status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// No row moved: either the job does not exist or it left the
	// expected status.
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM snipe_jobs WHERE id = $1)`, jobID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check snipe job existence: %w", err)
	}
	if !exists {
		return false, storage.ErrNotFound
	}
	return false, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (s *SnipeJobStore) IncrementAttempts(ctx context.Context, jobID string) (int, error) {
	query := `
		UPDATE snipe_jobs
		SET attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING attempts
	`

	var attempts int
	err := s.pool.QueryRow(ctx, query, jobID).Scan(&attempts)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("increment snipe job attempts: %w", err)
	}
	return attempts, nil
}

// SetTxSignature records the executed swap's transaction signature.
func (s *SnipeJobStore) SetTxSignature(ctx context.Context, jobID, signature string) error {
	query := `
		UPDATE snipe_jobs
		SET tx_signature = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, jobID, signature)
	if err != nil {
		return fmt.Errorf("set snipe job signature: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanSnipeJob scans a single row into a SnipeJob.
func scanSnipeJob(row pgx.Row) (*domain.SnipeJob, error) {
	var job domain.SnipeJob
	var buyAmount int64
	var status string

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.TargetMint,
		&buyAmount,
		&job.MaxSlippageBps,
		&status,
		&job.Attempts,
		&job.TxSignature,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.BuyAmountLamports = uint64(buyAmount)
	job.Status = domain.SnipeJobStatus(status)
	return &job, nil
}

// scanSnipeJobs scans multiple rows into a slice of SnipeJob.
func scanSnipeJobs(rows pgx.Rows) ([]*domain.SnipeJob, error) {
	var jobs []*domain.SnipeJob

	for rows.Next() {
		job, err := scanSnipeJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snipe job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snipe job rows: %w", err)
	}
	return jobs, nil
}
