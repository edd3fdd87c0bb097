package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"

	_ "modernc.org/sqlite"
)

// sqliteMaxVars keeps IN lists well below SQLite's bound parameter limit.
const sqliteMaxVars = 500

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes them anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertTransactions writes rows in a single SQL transaction.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, rows []core.TransactionRecord) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsertTransaction)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, len(rows))
	for i, row := range rows {
		id := uuid.NewString()
		if _, err := stmt.ExecContext(ctx,
			id,
			row.UserID,
			row.OccurredAt,
			row.Description,
			row.Amount.String(),
			row.CurrencyCode,
			row.BankAccountID,
			row.CategoryID,
			row.SubcategoryID,
		); err != nil {
			return nil, fmt.Errorf("insert transaction %d: %w", i+1, err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}

	slog.DebugContext(ctx, "Transactions saved to SQLite", "rows", len(rows))
	return ids, nil
}

// DeleteTransactions removes the rows among ids owned by userID.
func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var deleted int64
	for _, batch := range batches(ids, sqliteMaxVars) {
		query := "DELETE FROM transactions WHERE user_id = ? AND id IN (" + placeholders(len(batch)) + ")"
		res, err := tx.ExecContext(ctx, query, args(userID, batch)...)
		if err != nil {
			return 0, fmt.Errorf("delete transactions: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Transactions deleted from SQLite",
		"user_id", userID,
		"requested", len(ids),
		"deleted", deleted)
	return deleted, nil
}

// FindTransactions returns the rows among ids that exist for userID.
func (r *SQLiteRepository) FindTransactions(ctx context.Context, userID string, ids []string) ([]core.TransactionRecord, error) {
	var out []core.TransactionRecord
	for _, batch := range batches(ids, sqliteMaxVars) {
		query := sqliteSelectTransactions + " WHERE user_id = ? AND id IN (" + placeholders(len(batch)) + ") ORDER BY occurred_at, id"
		rows, err := r.db.QueryContext(ctx, query, args(userID, batch)...)
		if err != nil {
			return nil, fmt.Errorf("find transactions: %w", err)
		}
		found, err := scanTransactions(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.TransactionRecord, error) {
	var (
		t           core.TransactionRecord
		amount      string
		description sql.NullString
		subcategory sql.NullString
	)
	if err := s.Scan(
		&t.ID,
		&t.UserID,
		&t.OccurredAt,
		&description,
		&amount,
		&t.CurrencyCode,
		&t.BankAccountID,
		&t.CategoryID,
		&subcategory,
	); err != nil {
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return t, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	t.Amount = d
	if description.Valid {
		t.Description = &description.String
	}
	if subcategory.Valid {
		t.SubcategoryID = &subcategory.String
	}
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.TransactionRecord, error) {
	defer rows.Close()
	var out []core.TransactionRecord
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func batches(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(userID string, ids []string) []any {
	a := make([]any, 0, len(ids)+1)
	a = append(a, userID)
	for _, id := range ids {
		a = append(a, id)
	}
	return a
}
