package storage

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"
)

// ExecBatchFn executes one batch of statements, usually Repository.ExecBatch.
type ExecBatchFn func(ctx context.Context, stmts []string) (int64, error)

// LoadResult summarizes a LoadStatements run.
type LoadResult struct {
	Statements int64
	Batches    int64
}

// LoadStatements drains stmts into batches of batchSize and hands each
// non-empty batch to exec. It stops at the first error from the sequence or
// from exec, and on ctx cancellation.
//
// Progress is logged per flushed batch with running totals and statements
// per second since the previous flush.
func LoadStatements(
	ctx context.Context,
	stmts iter.Seq2[string, error],
	batchSize int,
	exec ExecBatchFn,
) (LoadResult, error) {
	var res LoadResult
	if batchSize <= 0 {
		return res, fmt.Errorf("batchSize must be > 0")
	}
	if exec == nil {
		return res, fmt.Errorf("exec must not be nil")
	}

	var (
		batch       = make([]string, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := exec(ctx, batch)
		res.Statements += n
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: batch failed after=%d total=%d err=%v", n, res.Statements, err)
			return err
		}

		res.Batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		sps := float64(0)
		if sinceLast > 0 {
			sps = float64(res.Statements-lastTotal) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: sps=%.0f executed=%d total_executed=%d elapsed=%s since_last=%s",
			res.Batches,
			sps,
			n,
			res.Statements,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = res.Statements
		return nil
	}

	for stmt, err := range stmts {
		if err != nil {
			return res, err
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		batch = append(batch, stmt)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}
	log.Printf("loader: input drained total_executed=%d batches=%d", res.Statements, res.Batches)
	return res, nil
}
