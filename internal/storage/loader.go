// This file implements a generic, batched loader that drains rows from a
// channel and invokes a backend bulk-insert function (CopyFn) per batch.
//
// Backends implement CopyFn with their most efficient primitive (Postgres
// COPY, SQL Server bulk copy, multi-row INSERT for MySQL/SQLite).
//
// Logging: every successful flush emits a progress line with running totals
// and instantaneous rows/sec since the previous flush.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CopyFn abstracts a backend's bulk insert capability. It must insert rows
// aligned to columns and return the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error encountered; on cancellation it returns
// (total, ctx.Err()).
func LoadBatches(
	ctx context.Context,
	logger *zap.Logger,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n

		// Reuse the backing array; copyFn must not retain the slice.
		batch = batch[:0]

		if err != nil {
			logger.Error("loader: copy failed", zap.Int64("copied", n), zap.Int64("total", total), zap.Error(err))
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		logger.Info("loader: batch flushed",
			zap.Int64("batch", batches),
			zap.Float64("rps", rps),
			zap.Int64("inserted", n),
			zap.Int64("total_inserted", total),
			zap.Duration("elapsed", now.Sub(start).Truncate(time.Millisecond)),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				logger.Debug("loader: input closed", zap.Int64("total_inserted", total))
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
