// Package archive persists session transcripts as parquet objects.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/shopchat/shopchat/internal/session"
	"github.com/shopchat/shopchat/internal/storage"
)

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

type parquetTurn struct {
	TimestampUnixMs int64  `parquet:"timestamp_unix_ms"`
	UserQuery       string `parquet:"user_query"`
	SQLQuery        string `parquet:"sql_query"`
	Succeeded       bool   `parquet:"succeeded"`
	ResultSummary   string `parquet:"result_summary"`
	TokenCost       int64  `parquet:"token_cost"`
}

// EncodeEntriesToParquet serializes the ledger in chronological order.
func EncodeEntriesToParquet(entries []session.Entry) (EncodeResult, error) {
	if len(entries) == 0 {
		return EncodeResult{}, fmt.Errorf("entries are required")
	}

	rows := make([]parquetTurn, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, parquetTurn{
			TimestampUnixMs: entry.Timestamp.UTC().UnixMilli(),
			UserQuery:       entry.UserQuery,
			SQLQuery:        entry.SQLQuery,
			Succeeded:       entry.Succeeded,
			ResultSummary:   entry.ResultSummary,
			TokenCost:       int64(entry.TokenCost),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetTurn](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{Data: buf.Bytes(), RecordCount: int64(len(rows))}, nil
}

// Archiver uploads encoded transcripts to the object store.
type Archiver struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewArchiver(store storage.ObjectStore) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	return &Archiver{store: store, now: time.Now}, nil
}

// ArchiveSession encodes the session's entries and uploads them under the
// transcript path for the current date. It returns the object key.
func (a *Archiver) ArchiveSession(ctx context.Context, sessionID string, entries []session.Entry) (string, int64, error) {
	encoded, err := EncodeEntriesToParquet(entries)
	if err != nil {
		return "", 0, err
	}

	key, err := storage.BuildTranscriptPath(sessionID, a.now())
	if err != nil {
		return "", 0, err
	}

	_, err = a.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", 0, fmt.Errorf("upload transcript %q: %w", key, err)
	}
	return key, encoded.RecordCount, nil
}
