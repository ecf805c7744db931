package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	err     error
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if m.err != nil {
		return m.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[path] = body
	return nil
}

type memArchiveStore struct {
	trades  []domain.ClosedTrade
	deleted int64
}

func (m *memArchiveStore) ListBefore(_ context.Context, before time.Time) ([]domain.ClosedTrade, error) {
	var out []domain.ClosedTrade
	for _, t := range m.trades {
		if t.ClosedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memArchiveStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	kept := m.trades[:0]
	var n int64
	for _, t := range m.trades {
		if t.ClosedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.trades = kept
	m.deleted += n
	return n, nil
}

func testArchiver(w domain.BlobWriter, s TradeArchiveStore) *Archiver {
	return NewArchiver(w, s, 90, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestArchiveOncePagesOutOldTrades(t *testing.T) {
	now := time.Now().UTC()
	store := &memArchiveStore{trades: []domain.ClosedTrade{
		{ID: "old-1", Mint: "m1", ClosedAt: now.AddDate(0, 0, -120)},
		{ID: "old-2", Mint: "m2", ClosedAt: now.AddDate(0, 0, -100)},
		{ID: "fresh", Mint: "m3", ClosedAt: now.AddDate(0, 0, -5)},
	}}
	w := &memWriter{}

	require.NoError(t, testArchiver(w, store).ArchiveOnce(context.Background()))

	require.Len(t, w.objects, 1)
	var body []byte
	for _, b := range w.objects {
		body = b
	}

	// Two JSONL lines, one per archived trade.
	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var trade domain.ClosedTrade
		require.NoError(t, json.Unmarshal(sc.Bytes(), &trade))
		ids = append(ids, trade.ID)
	}
	assert.ElementsMatch(t, []string{"old-1", "old-2"}, ids)

	// Fresh trade survives; archived rows are gone.
	assert.Equal(t, int64(2), store.deleted)
	require.Len(t, store.trades, 1)
	assert.Equal(t, "fresh", store.trades[0].ID)
}

func TestArchiveOnceNothingToDo(t *testing.T) {
	store := &memArchiveStore{trades: []domain.ClosedTrade{
		{ID: "fresh", ClosedAt: time.Now().UTC()},
	}}
	w := &memWriter{}

	require.NoError(t, testArchiver(w, store).ArchiveOnce(context.Background()))

	assert.Empty(t, w.objects)
	assert.Equal(t, int64(0), store.deleted)
}

func TestArchiveOnceKeepsRowsOnUploadFailure(t *testing.T) {
	now := time.Now().UTC()
	store := &memArchiveStore{trades: []domain.ClosedTrade{
		{ID: "old", ClosedAt: now.AddDate(0, 0, -120)},
	}}
	w := &memWriter{err: errors.New("bucket gone")}

	err := testArchiver(w, store).ArchiveOnce(context.Background())

	require.Error(t, err)
	assert.Equal(t, int64(0), store.deleted)
	assert.Len(t, store.trades, 1)
}
