package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/tzpesa/pesa-service/internal/models"
)

// Repository provides database operations over Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetTransaction retrieves a transaction by order reference
func (r *Repository) GetTransaction(ctx context.Context, reference string) (*models.Transaction, error) {
	t := &models.Transaction{}
	var completedAt sql.NullTime
	query := `
		SELECT local_reference, gateway_id, kind, status, amount, currency,
		       counterparty_phone, channel, channel_provider, fee,
		       beneficiary_amount, exchanged, exchange_rate, message,
		       created_at, updated_at, completed_at
		FROM pesa.transactions
		WHERE local_reference = $1`
	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&t.LocalReference, &t.GatewayID, &t.Kind, &t.Status, &t.Amount,
		&t.Currency, &t.CounterpartyPhone, &t.Channel, &t.ChannelProvider,
		&t.Fee, &t.BeneficiaryAmount, &t.Exchanged, &t.ExchangeRate,
		&t.Message, &t.CreatedAt, &t.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

// CreateTransaction inserts a new transaction record. The insert is
// compare-and-create on local_reference: a concurrent or earlier creation
// with the same reference yields ErrConflict, never a second row.
func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO pesa.transactions (
			local_reference, gateway_id, kind, status, amount, currency,
			counterparty_phone, channel, channel_provider, fee,
			beneficiary_amount, exchanged, exchange_rate, message,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (local_reference) DO NOTHING
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		t.LocalReference, t.GatewayID, t.Kind, t.Status, t.Amount, t.Currency,
		t.CounterpartyPhone, t.Channel, t.ChannelProvider, t.Fee,
		t.BeneficiaryAmount, t.Exchanged, t.ExchangeRate, t.Message,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// UpdateTransactionStatus applies a status update conditional on the
// previously observed status, so two reconcilers racing on the same record
// cannot clobber each other.
func (r *Repository) UpdateTransactionStatus(ctx context.Context, t *models.Transaction, expected models.Status) error {
	var completedAt sql.NullTime
	if t.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *t.CompletedAt, Valid: true}
	}
	query := `
		UPDATE pesa.transactions
		SET status = $3, gateway_id = $4, channel_provider = $5, fee = $6,
		    beneficiary_amount = $7, exchanged = $8, exchange_rate = $9,
		    message = $10, completed_at = $11, updated_at = CURRENT_TIMESTAMP
		WHERE local_reference = $1 AND status = $2
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		t.LocalReference, expected, t.Status, t.GatewayID, t.ChannelProvider,
		t.Fee, t.BeneficiaryAmount, t.Exchanged, t.ExchangeRate, t.Message,
		completedAt,
	).Scan(&t.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}

// ListPendingTransactions returns transactions of a kind still in a
// non-terminal status, oldest first, for the reconciliation sweep.
func (r *Repository) ListPendingTransactions(ctx context.Context, kind models.Kind) ([]models.Transaction, error) {
	statuses := models.NonTerminalStatuses(kind)
	pending := make([]string, 0, len(statuses))
	for _, s := range statuses {
		pending = append(pending, string(s))
	}

	query := `
		SELECT local_reference, gateway_id, kind, status, amount, currency,
		       counterparty_phone, channel, channel_provider, fee,
		       beneficiary_amount, exchanged, exchange_rate, message,
		       created_at, updated_at, completed_at
		FROM pesa.transactions
		WHERE kind = $1 AND status = ANY($2)
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, kind, pq.Array(pending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var completedAt sql.NullTime
		if err := rows.Scan(
			&t.LocalReference, &t.GatewayID, &t.Kind, &t.Status, &t.Amount,
			&t.Currency, &t.CounterpartyPhone, &t.Channel, &t.ChannelProvider,
			&t.Fee, &t.BeneficiaryAmount, &t.Exchanged, &t.ExchangeRate,
			&t.Message, &t.CreatedAt, &t.UpdatedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ActiveCredential returns the most recent usable credential
func (r *Repository) ActiveCredential(ctx context.Context) (*models.Credential, error) {
	c := &models.Credential{}
	query := `
		SELECT token, created_at, expires_at, is_active
		FROM pesa.credentials
		WHERE is_active = TRUE AND expires_at > CURRENT_TIMESTAMP
		ORDER BY created_at DESC
		LIMIT 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&c.Token, &c.IssuedAt, &c.ExpiresAt, &c.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return c, nil
}

// SaveCredential stores a freshly acquired credential, deactivating any
// prior active credential in the same database transaction.
func (r *Repository) SaveCredential(ctx context.Context, c *models.Credential) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin credential save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE pesa.credentials SET is_active = FALSE WHERE is_active = TRUE`); err != nil {
		return fmt.Errorf("failed to deactivate credentials: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pesa.credentials (token, created_at, expires_at, is_active)
		 VALUES ($1, $2, $3, TRUE)`,
		c.Token, c.IssuedAt, c.ExpiresAt); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return tx.Commit()
}

// InvalidateCredentials deactivates every stored credential
func (r *Repository) InvalidateCredentials(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE pesa.credentials SET is_active = FALSE WHERE is_active = TRUE`); err != nil {
		return fmt.Errorf("failed to invalidate credentials: %w", err)
	}
	return nil
}
