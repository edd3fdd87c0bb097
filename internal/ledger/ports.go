package ledger

import (
	"context"

	"finanzas/internal/core"
)

// Ports for transaction storage backends.
type (
	// TransactionInserter persists one chunk of rows. Implementations must
	// make each call all-or-nothing and return the assigned ids in input
	// order. An implementation that cannot undo a partial write returns the
	// ids that may still exist alongside the error.
	TransactionInserter interface {
		InsertTransactions(ctx context.Context, rows []core.TransactionRecord) (ids []string, err error)
	}

	// TransactionDeleter removes rows by id, limited to rows owned by userID.
	TransactionDeleter interface {
		DeleteTransactions(ctx context.Context, userID string, ids []string) (deleted int64, err error)
	}

	// TransactionFinder returns the rows among ids that still exist for userID.
	TransactionFinder interface {
		FindTransactions(ctx context.Context, userID string, ids []string) ([]core.TransactionRecord, error)
	}

	// Pinger reports whether the backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// TransactionWriter is what the ingestion pipeline needs.
	TransactionWriter interface {
		TransactionInserter
		TransactionDeleter
	}

	// Store is the full set of operations every backend provides.
	Store interface {
		TransactionWriter
		TransactionFinder
		Pinger
	}
)
