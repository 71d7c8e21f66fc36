package repository

import (
	"context"
	"errors"

	"github.com/tzpesa/pesa-service/internal/models"
)

var (
	// ErrNotFound means no record exists for the given key
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a conditional write lost to a concurrent writer
	ErrConflict = errors.New("conditional write conflict")
)

// TransactionStore is the narrow persistence interface the core writes
// transaction records through. Every operation is atomic at single-record
// granularity; creation is compare-and-create, status updates are
// conditional on the previously observed status.
type TransactionStore interface {
	GetTransaction(ctx context.Context, reference string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransactionStatus(ctx context.Context, t *models.Transaction, expected models.Status) error
	ListPendingTransactions(ctx context.Context, kind models.Kind) ([]models.Transaction, error)
}

// CredentialStore persists gateway bearer credentials. Saving a credential
// deactivates any prior active credential in the same operation.
type CredentialStore interface {
	ActiveCredential(ctx context.Context) (*models.Credential, error)
	SaveCredential(ctx context.Context, c *models.Credential) error
	InvalidateCredentials(ctx context.Context) error
}
