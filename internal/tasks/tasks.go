// Package tasks provides the two concurrency strategies used by the trigger
// handlers: run everything and join, or run in order and let the caller decide
// whether an error stops the sequence.
package tasks

import (
	"context"
	"sync"
)

// Task is one unit of work.
type Task func(ctx context.Context) error

// RunAll starts every task concurrently, waits for all of them and returns
// their errors by position. A failing task never blocks or cancels the others.
func RunAll(ctx context.Context, tasks []Task) []error {
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			errs[i] = task(ctx)
		}(i, task)
	}
	wg.Wait()
	return errs
}

// RunSeq runs the tasks one after the other. When stopOnError is set the
// first failure ends the sequence; either way all collected errors are
// returned by position.
func RunSeq(ctx context.Context, tasks []Task, stopOnError bool) []error {
	errs := make([]error, 0, len(tasks))
	for _, task := range tasks {
		err := task(ctx)
		errs = append(errs, err)
		if err != nil && stopOnError {
			break
		}
	}
	return errs
}

// FirstError returns the first non-nil error in errs, or nil.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
