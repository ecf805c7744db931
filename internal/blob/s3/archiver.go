package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

// TradeArchiveStore is the narrow slice of the trade store the archiver
// needs: time-ranged reads plus deletion of successfully archived rows.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.ClosedTrade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver pages old closed trades out of the primary store into monthly
// JSONL objects, keeping Postgres lean while preserving the full history.
// Rows are deleted only after the upload succeeded.
type Archiver struct {
	writer        domain.BlobWriter
	trades        TradeArchiveStore
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
}

// NewArchiver creates an Archiver keeping retentionDays of history in the
// primary store and running once per interval.
func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore, retentionDays int, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:        writer,
		trades:        trades,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger.With(slog.String("component", "trade_archiver")),
	}
}

// Run archives on the configured interval until the context is cancelled.
// One pass runs immediately at startup so a long-stopped bot catches up.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	if err := a.ArchiveOnce(ctx); err != nil {
		a.logger.ErrorContext(ctx, "archive pass failed",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.ArchiveOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// ArchiveOnce uploads every trade older than the retention window to
// archive/trades/YYYY-MM.jsonl and deletes the uploaded rows.
func (a *Archiver) ArchiveOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.retentionDays)

	trades, err := a.trades.ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath("trades", cutoff)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive upload: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: archive cleanup after upload to %s: %w", path, err)
	}

	a.logger.InfoContext(ctx, "trades archived",
		slog.String("path", path),
		slog.Int("archived", len(trades)),
		slog.Int64("deleted", deleted),
	)
	return nil
}

func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
