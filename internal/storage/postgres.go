package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// PostgresRepository stores transactions in Postgres through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to url and, when migrate is set, applies
// the embedded schema.
func NewPostgresRepository(ctx context.Context, url string, migrate bool) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := &PostgresRepository{pool: pool}
	if migrate {
		if err := repo.Migrate(); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return repo, nil
}

// Migrate applies pending schema migrations.
func (r *PostgresRepository) Migrate() error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	if err := RunPostgresMigrations(db); err != nil {
		return fmt.Errorf("run postgres migrations: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// InsertTransactions sends the whole chunk as one pipelined batch inside a
// transaction, so ids come back in input order.
func (r *PostgresRepository) InsertTransactions(ctx context.Context, rows []core.TransactionRecord) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(postgresInsertTransaction,
			row.UserID,
			row.OccurredAt,
			row.Description,
			row.Amount.String(),
			row.CurrencyCode,
			row.BankAccountID,
			row.CategoryID,
			row.SubcategoryID,
		)
	}

	ids := make([]string, len(rows))
	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if err := br.QueryRow().Scan(&ids[i]); err != nil {
			br.Close()
			return nil, fmt.Errorf("insert transaction %d: %w", i+1, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close insert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}

	slog.DebugContext(ctx, "Transactions saved to Postgres", "rows", len(rows))
	return ids, nil
}

// DeleteTransactions removes the rows among ids owned by userID.
func (r *PostgresRepository) DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, postgresDeleteTransactions, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions deleted from Postgres",
		"user_id", userID,
		"requested", len(ids),
		"deleted", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// FindTransactions returns the rows among ids that exist for userID.
func (r *PostgresRepository) FindTransactions(ctx context.Context, userID string, ids []string) ([]core.TransactionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, postgresSelectTransactions, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionRecord
	for rows.Next() {
		var (
			t      core.TransactionRecord
			amount string
		)
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.OccurredAt,
			&t.Description,
			&amount,
			&t.CurrencyCode,
			&t.BankAccountID,
			&t.CategoryID,
			&t.SubcategoryID,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
