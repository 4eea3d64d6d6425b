// Package triage runs the target on a batch of corpus items with a
// bounded number of concurrent executions.
package triage

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"

	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/record"
)

// ProgressHandler is notified after each processed item. The calls are
// serialized by the pool. rec is nil if the item was skipped.
type ProgressHandler interface {
	HandleProgress(done, total int, rec *record.CrashRecord)
}

// ProcessFunc produces the record of a single item. An *ItemError only
// affects the item, a nil record returned with it means the item is
// skipped. All other errors abort the batch.
type ProcessFunc func(ctx context.Context, item *corpus.Item) (*record.CrashRecord, error)

// An ItemError is an error which is reported as a warning without
// stopping the batch
type ItemError struct {
	err error
}

func (e *ItemError) Error() string {
	return e.err.Error()
}

func (e *ItemError) Unwrap() error {
	return e.err
}

func NewItemError(err error) error {
	return &ItemError{err}
}

type Pool struct {
	// Maximum number of concurrently processed items, DefaultJobs() if
	// not positive
	Jobs            int
	ProgressHandler ProgressHandler
}

// DefaultJobs returns the number of physical CPU cores, or the number of
// logical CPUs if that can't be determined.
func DefaultJobs() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		log.Debugf("Failed to determine the number of physical cores: %v", err)
		return runtime.NumCPU()
	}
	return n
}

func (p *Pool) jobs() int {
	if p.Jobs > 0 {
		return p.Jobs
	}
	return DefaultJobs()
}

// Run processes all items and returns their records in the order of
// items. Skipped items have a nil record. If ctx is cancelled, the
// running executions are terminated and ctx's error is returned.
func (p *Pool) Run(ctx context.Context, items []*corpus.Item, process ProcessFunc) ([]*record.CrashRecord, error) {
	records := make([]*record.CrashRecord, len(items))

	var mutex sync.Mutex
	done := 0

	routines, routinesCtx := errgroup.WithContext(ctx)
	routines.SetLimit(p.jobs())
	for i, item := range items {
		if routinesCtx.Err() != nil {
			break
		}
		i, item := i, item
		routines.Go(func() error {
			if routinesCtx.Err() != nil {
				return nil
			}
			rec, err := process(routinesCtx, item)
			if err != nil {
				var itemErr *ItemError
				if !errors.As(err, &itemErr) {
					return err
				}
				if rec == nil {
					log.Warnf("Skipping %s: %v", item.Path, err)
				} else {
					log.Warnf("%s: %v", item.Path, err)
				}
			}
			// Every routine writes a different index
			records[i] = rec

			mutex.Lock()
			defer mutex.Unlock()
			done++
			if p.ProgressHandler != nil {
				p.ProgressHandler.HandleProgress(done, len(items), rec)
			}
			return nil
		})
	}

	err := routines.Wait()
	if ctx.Err() != nil {
		return nil, errors.WithStack(ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}
