package store

import (
	"context"
	"sync"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// Memory is a process-local Repository.
type Memory struct {
	mu    sync.RWMutex
	order []string
	txs   map[string]models.Transaction
	prefs models.Preferences
}

func NewMemory() *Memory {
	return &Memory{
		txs:   make(map[string]models.Transaction),
		prefs: models.Preferences{},
	}
}

func (m *Memory) Save(_ context.Context, txs ...models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txs {
		if _, ok := m.txs[tx.ID]; !ok {
			m.order = append(m.order, tx.ID)
		}
		m.txs[tx.ID] = tx
	}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	if !ok {
		return models.Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (m *Memory) List(_ context.Context) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Transaction, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.txs[id])
	}
	return out, nil
}

func (m *Memory) UpdateCategory(_ context.Context, id, category string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return models.Transaction{}, ErrNotFound
	}
	tx.Category = category
	m.txs[id] = tx
	return tx, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[id]; !ok {
		return ErrNotFound
	}
	delete(m.txs, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Preferences(_ context.Context) (models.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs.Clone(), nil
}

func (m *Memory) ReplacePreferences(_ context.Context, prefs models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = prefs.Clone()
	return nil
}

func (m *Memory) Close() error { return nil }
