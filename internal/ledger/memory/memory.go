package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"finanzas/internal/core"
)

// Store keeps transactions in process memory.
type Store struct {
	mu   sync.Mutex
	rows map[string]core.TransactionRecord
}

func New() *Store {
	return &Store{rows: make(map[string]core.TransactionRecord)}
}

// InsertTransactions stores every row and returns their new ids.
func (s *Store) InsertTransactions(_ context.Context, rows []core.TransactionRecord) ([]string, error) {
	for _, r := range rows {
		if r.UserID == "" {
			return nil, errors.New("insert transaction: user id is required")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(rows))
	for i, r := range rows {
		r.ID = uuid.NewString()
		s.rows[r.ID] = r
		ids[i] = r.ID
	}
	return ids, nil
}

// DeleteTransactions removes the rows among ids owned by userID.
func (s *Store) DeleteTransactions(_ context.Context, userID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if r, ok := s.rows[id]; ok && r.UserID == userID {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// FindTransactions returns the rows among ids owned by userID.
func (s *Store) FindTransactions(_ context.Context, userID string, ids []string) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.TransactionRecord
	for _, id := range ids {
		if r, ok := s.rows[id]; ok && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Rows returns a copy of every stored row in no particular order.
func (s *Store) Rows() []core.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TransactionRecord, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out
}
