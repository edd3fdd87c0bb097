package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/ingest"
	"finanzas/internal/ledger"
)

// MaxChunkSize is the largest number of rows sent to the store in one call.
const MaxChunkSize = 1000

// CompensationPublisher hands unfinished compensations to an out-of-process
// worker.
type CompensationPublisher interface {
	PublishCompensation(ctx context.Context, req core.CompensationRequest) error
}

// IngestionConfig holds configuration for the ingestion processor
type IngestionConfig struct {
	// ChunkSize is the number of rows per insert call (1..1000, default: 1000)
	ChunkSize int

	// MaxUploadBytes rejects files larger than this (default: 5MB, 0 disables)
	MaxUploadBytes int64

	// StrictDates rejects dates that are not real calendar days (default: true)
	StrictDates bool

	// CompensationAttempts is how many times a compensating delete is tried (default: 3)
	CompensationAttempts int

	// CompensationBackoff is the delay before the second attempt; it doubles
	// every attempt up to 30s (default: 200ms)
	CompensationBackoff time.Duration

	// CompensationTimeout bounds the whole compensation phase (default: 30s)
	CompensationTimeout time.Duration
}

// DefaultIngestionConfig returns sensible defaults
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		ChunkSize:            MaxChunkSize,
		MaxUploadBytes:       5 << 20,
		StrictDates:          true,
		CompensationAttempts: 3,
		CompensationBackoff:  200 * time.Millisecond,
		CompensationTimeout:  30 * time.Second,
	}
}

const maxBackoff = 30 * time.Second

// IngestionStats are cumulative counters since process start.
type IngestionStats struct {
	Uploads              int64
	Succeeded            int64
	Failed               int64
	RowsInserted         int64
	Compensations        int64
	CompensationFailures int64
}

// IngestionProcessor turns an uploaded CSV into persisted transactions.
//
// Chunks are inserted strictly one after the other. When a chunk fails the
// rows of every earlier chunk are deleted before the failure is returned.
type IngestionProcessor struct {
	store     ledger.TransactionWriter
	publisher CompensationPublisher
	config    IngestionConfig

	sleep func(ctx context.Context, d time.Duration) error

	uploads              atomic.Int64
	succeeded            atomic.Int64
	failed               atomic.Int64
	rowsInserted         atomic.Int64
	compensations        atomic.Int64
	compensationFailures atomic.Int64
}

// NewIngestionProcessor creates a new processor. publisher may be nil.
func NewIngestionProcessor(store ledger.TransactionWriter, publisher CompensationPublisher, config IngestionConfig) *IngestionProcessor {
	if config.ChunkSize <= 0 || config.ChunkSize > MaxChunkSize {
		config.ChunkSize = MaxChunkSize
	}
	if config.CompensationAttempts <= 0 {
		config.CompensationAttempts = 1
	}
	if config.CompensationTimeout <= 0 {
		config.CompensationTimeout = 30 * time.Second
	}
	return &IngestionProcessor{
		store:     store,
		publisher: publisher,
		config:    config,
		sleep:     sleepContext,
	}
}

// Config returns the effective configuration.
func (p *IngestionProcessor) Config() IngestionConfig {
	return p.config
}

// Stats returns a snapshot of the processor counters.
func (p *IngestionProcessor) Stats() IngestionStats {
	return IngestionStats{
		Uploads:              p.uploads.Load(),
		Succeeded:            p.succeeded.Load(),
		Failed:               p.failed.Load(),
		RowsInserted:         p.rowsInserted.Load(),
		Compensations:        p.compensations.Load(),
		CompensationFailures: p.compensationFailures.Load(),
	}
}

// Process runs one upload for userID. The returned result is always a
// valid response body; err is non-nil exactly when result.Success is false.
func (p *IngestionProcessor) Process(ctx context.Context, userID string, req core.UploadRequest) (core.IngestionResult, error) {
	p.uploads.Add(1)

	n, err := p.process(ctx, userID, req)
	if err != nil {
		p.failed.Add(1)
		slog.WarnContext(ctx, "Batch upload failed",
			"user_id", userID,
			"file_name", req.FileName,
			"error_kind", string(core.KindOf(err)),
			"error", err)
		return core.Failed(err), err
	}

	p.succeeded.Add(1)
	p.rowsInserted.Add(int64(n))
	slog.InfoContext(ctx, "Batch upload completed",
		"user_id", userID,
		"file_name", req.FileName,
		"inserted", n)
	return core.Succeeded(n), nil
}

func (p *IngestionProcessor) process(ctx context.Context, userID string, req core.UploadRequest) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, core.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if p.config.MaxUploadBytes > 0 && int64(len(req.File)) > p.config.MaxUploadBytes {
		return 0, core.ErrFileTooLarge
	}

	rows, err := ingest.ParseRows(req.File)
	if err != nil {
		return 0, err
	}
	records, err := ingest.BuildRecords(userID, req, rows, ingest.BuildOptions{StrictDates: p.config.StrictDates})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, core.ErrEmptyBatch
	}

	ids, err := p.insertChunks(ctx, records)
	if err != nil {
		reverted := p.compensate(ctx, userID, ids, err)
		return 0, core.InsertionFailed(err, reverted)
	}
	return len(ids), nil
}

// insertChunks returns every id the store handed back, including those
// gathered before a failure and any the failing chunk left behind.
func (p *IngestionProcessor) insertChunks(ctx context.Context, records []core.TransactionRecord) ([]string, error) {
	chunks := ingest.Chunks(records, p.config.ChunkSize)
	ids := make([]string, 0, len(records))

	for i, chunk := range chunks {
		start := time.Now()
		got, err := p.store.InsertTransactions(ctx, chunk)
		ids = append(ids, got...)
		if err != nil {
			slog.ErrorContext(ctx, "Chunk insert failed",
				"chunk", i+1,
				"chunks", len(chunks),
				"rows", len(chunk),
				"leftover", len(got),
				"error", err)
			return ids, err
		}
		if len(got) != len(chunk) {
			return ids, fmt.Errorf("store returned %d ids for %d rows", len(got), len(chunk))
		}
		slog.DebugContext(ctx, "Chunk inserted",
			"chunk", i+1,
			"chunks", len(chunks),
			"rows", len(chunk),
			"duration_ms", time.Since(start).Milliseconds())
	}
	return ids, nil
}

// compensate deletes ids and reports whether that fully succeeded. It keeps
// going after the request context is cancelled, up to CompensationTimeout.
func (p *IngestionProcessor) compensate(ctx context.Context, userID string, ids []string, cause error) bool {
	if len(ids) == 0 {
		return true
	}
	p.compensations.Add(1)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.CompensationTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= p.config.CompensationAttempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(cctx, Backoff(p.config.CompensationBackoff, attempt-1)); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}

		deleted, err := p.store.DeleteTransactions(cctx, userID, ids)
		if err == nil {
			if deleted != int64(len(ids)) {
				slog.WarnContext(cctx, "Compensating delete removed fewer rows than inserted",
					"user_id", userID,
					"expected", len(ids),
					"deleted", deleted)
			}
			slog.InfoContext(cctx, "Compensated failed upload",
				"user_id", userID,
				"rows", len(ids),
				"attempt", attempt)
			return true
		}
		lastErr = err
		slog.WarnContext(cctx, "Compensating delete failed",
			"user_id", userID,
			"attempt", attempt,
			"error", err)
	}

	p.compensationFailures.Add(1)
	slog.ErrorContext(cctx, "Rows left orphaned after failed upload",
		"user_id", userID,
		"orphaned_ids", ids,
		"error", lastErr)

	p.handOff(cctx, userID, ids, cause)
	return false
}

func (p *IngestionProcessor) handOff(ctx context.Context, userID string, ids []string, cause error) {
	if p.publisher == nil {
		slog.WarnContext(ctx, "No compensation publisher configured, orphaned rows need manual cleanup",
			"user_id", userID,
			"rows", len(ids))
		return
	}

	req := core.CompensationRequest{
		RequestID: uuid.NewString(),
		UserID:    userID,
		IDs:       ids,
		Reason:    cause.Error(),
	}
	if err := p.publisher.PublishCompensation(ctx, req); err != nil {
		slog.ErrorContext(ctx, "Failed to publish compensation request",
			"request_id", req.RequestID,
			"user_id", userID,
			"error", err)
		return
	}
	slog.InfoContext(ctx, "Compensation request published",
		"request_id", req.RequestID,
		"user_id", userID,
		"rows", len(ids))
}

// Backoff returns base doubled n-1 times, capped at 30s.
func Backoff(base time.Duration, n int) time.Duration {
	if base <= 0 || n <= 0 {
		return 0
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return min(d, maxBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
