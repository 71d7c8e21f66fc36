package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tzpesa/pesa-service/internal/models"
)

// Memory is an in-memory store with the same conditional-write semantics as
// the Postgres repository. Used by tests and local development.
type Memory struct {
	mu           sync.Mutex
	transactions map[string]models.Transaction
	credentials  []models.Credential
}

// NewMemory initializes an empty in-memory store
func NewMemory() *Memory {
	return &Memory{transactions: make(map[string]models.Transaction)}
}

func (m *Memory) GetTransaction(ctx context.Context, reference string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[reference]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *Memory) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.transactions[t.LocalReference]; exists {
		return ErrConflict
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.transactions[t.LocalReference] = *t
	return nil
}

func (m *Memory) UpdateTransactionStatus(ctx context.Context, t *models.Transaction, expected models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.transactions[t.LocalReference]
	if !ok || current.Status != expected {
		return ErrConflict
	}
	t.CreatedAt = current.CreatedAt
	t.UpdatedAt = time.Now()
	m.transactions[t.LocalReference] = *t
	return nil
}

func (m *Memory) ListPendingTransactions(ctx context.Context, kind models.Kind) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.Kind == kind && !t.Terminal() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ActiveCredential(ctx context.Context) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.credentials) - 1; i >= 0; i-- {
		c := m.credentials[i]
		if c.Active && c.ExpiresAt.After(time.Now()) {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveCredential(ctx context.Context, c *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.credentials {
		m.credentials[i].Active = false
	}
	saved := *c
	saved.Active = true
	m.credentials = append(m.credentials, saved)
	return nil
}

func (m *Memory) InvalidateCredentials(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.credentials {
		m.credentials[i].Active = false
	}
	return nil
}
