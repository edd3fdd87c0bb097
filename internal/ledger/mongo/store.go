// Package mongo stores transactions in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finanzas/internal/core"
)

// TransactionsCollection is the collection every row is written to.
const TransactionsCollection = "transactions"

// DataStore is the subset of *mongo.Collection the store uses.
type DataStore interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*driver.InsertManyResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*driver.DeleteResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*driver.Cursor, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// Provider adapts a *mongo.Database to CollectionProvider.
type Provider struct {
	db *driver.Database
}

func NewProvider(db *driver.Database) *Provider {
	return &Provider{db: db}
}

func (p *Provider) Collection(name string) DataStore {
	return p.db.Collection(name)
}

type transactionDoc struct {
	ID            string               `bson:"_id"`
	UserID        string               `bson:"user_id"`
	OccurredAt    string               `bson:"occurred_at"`
	Description   *string              `bson:"description"`
	Amount        primitive.Decimal128 `bson:"amount"`
	CurrencyCode  string               `bson:"currency_code"`
	BankAccountID string               `bson:"bank_account_id"`
	CategoryID    string               `bson:"category_id"`
	SubcategoryID *string              `bson:"subcategory_id"`
	CreatedAt     time.Time            `bson:"created_at"`
}

// Store implements the ledger ports on MongoDB.
type Store struct {
	coll DataStore
	ping func(ctx context.Context) error

	now func() time.Time
}

// New creates a store over provider. ping may be nil.
func New(provider CollectionProvider, ping func(ctx context.Context) error) *Store {
	return &Store{
		coll: provider.Collection(TransactionsCollection),
		ping: ping,
		now:  time.Now,
	}
}

// Connect dials uri, pings the server and ensures the user_id index exists
// on database dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, *driver.Client, error) {
	client, err := driver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	_, err = db.Collection(TransactionsCollection).Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("create user_id index: %w", err)
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", dbName)
	store := New(NewProvider(db), func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
	return store, client, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// InsertTransactions inserts rows with one ordered InsertMany. If the server
// accepts only part of the chunk, the accepted documents are removed before
// the error is returned. When that removal fails too, the chunk's ids are
// returned with the error so the caller can compensate them.
func (s *Store) InsertTransactions(ctx context.Context, rows []core.TransactionRecord) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	now := s.now().UTC()
	ids := make([]string, len(rows))
	docs := make([]interface{}, len(rows))
	for i, row := range rows {
		amount, err := primitive.ParseDecimal128(row.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("convert amount %s: %w", row.Amount, err)
		}
		ids[i] = uuid.NewString()
		docs[i] = transactionDoc{
			ID:            ids[i],
			UserID:        row.UserID,
			OccurredAt:    row.OccurredAt,
			Description:   row.Description,
			Amount:        amount,
			CurrencyCode:  row.CurrencyCode,
			BankAccountID: row.BankAccountID,
			CategoryID:    row.CategoryID,
			SubcategoryID: row.SubcategoryID,
			CreatedAt:     now,
		}
	}

	_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		insertErr := fmt.Errorf("insert transactions: %w", err)
		if cerr := s.undo(ctx, rows[0].UserID, ids); cerr != nil {
			return ids, errors.Join(insertErr, cerr)
		}
		return nil, insertErr
	}

	slog.DebugContext(ctx, "Transactions saved to MongoDB", "rows", len(rows))
	return ids, nil
}

func (s *Store) undo(ctx context.Context, userID string, ids []string) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := s.DeleteTransactions(cctx, userID, ids); err != nil {
		return fmt.Errorf("remove partial chunk: %w", err)
	}
	return nil
}

// DeleteTransactions removes the rows among ids owned by userID.
func (s *Store) DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.coll.DeleteMany(ctx, filter(userID, ids))
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions deleted from MongoDB",
		"user_id", userID,
		"requested", len(ids),
		"deleted", res.DeletedCount)
	return res.DeletedCount, nil
}

// FindTransactions returns the rows among ids that exist for userID.
func (s *Store) FindTransactions(ctx context.Context, userID string, ids []string) ([]core.TransactionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.coll.Find(ctx, filter(userID, ids), options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	var out []core.TransactionRecord
	for cur.Next(ctx) {
		var doc transactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		amount, err := decimal.NewFromString(doc.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", doc.Amount.String(), err)
		}
		out = append(out, core.TransactionRecord{
			ID:            doc.ID,
			UserID:        doc.UserID,
			OccurredAt:    doc.OccurredAt,
			Description:   doc.Description,
			Amount:        amount,
			CurrencyCode:  doc.CurrencyCode,
			BankAccountID: doc.BankAccountID,
			CategoryID:    doc.CategoryID,
			SubcategoryID: doc.SubcategoryID,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func filter(userID string, ids []string) bson.M {
	return bson.M{
		"user_id": userID,
		"_id":     bson.M{"$in": ids},
	}
}
