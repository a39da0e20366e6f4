package teardown

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one independent unit of work inside a stage.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Settlement is the settled result of a Task.
type Settlement struct {
	Name       string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunSettled runs tasks concurrently and waits for all of them to settle.
// A failing task never cancels its siblings. Results are returned in task
// order. A limit of zero or less runs every task at once.
func RunSettled(ctx context.Context, limit int, tasks ...Task) []Settlement {
	results := make([]Settlement, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			results[i] = settle(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failed returns the settlements that ended in an error.
func Failed(settlements []Settlement) []Settlement {
	var out []Settlement
	for _, s := range settlements {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

func settle(ctx context.Context, t Task) (s Settlement) {
	s.Name = t.Name
	s.StartedAt = time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.Err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
		s.FinishedAt = time.Now()
	}()

	if t.Run == nil {
		return s
	}
	s.Err = t.Run(ctx)
	return s
}
