package cacheupdater

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"
)

// TaskRunner schedules fire-and-forget background refresh tasks (C7).
// Failures are logged and never reach the foreground call that scheduled
// them. There is no cross-process deduplication; the singleflight.Group
// provides only the opportunistic, same-process coalescing spec.md
// §4.7/§7 explicitly allows without requiring it.
type TaskRunner struct {
	logger log.Logger
	group  singleflight.Group
}

// NewTaskRunner returns a TaskRunner logging through logger (a no-op logger
// if nil).
func NewTaskRunner(logger log.Logger) *TaskRunner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &TaskRunner{logger: logger}
}

// Spawn runs task in its own goroutine, recovering panics and logging any
// error instead of propagating it. Concurrent Spawn calls sharing the same
// dedupeKey coalesce onto a single in-flight execution.
func (r *TaskRunner) Spawn(dedupeKey string, task func(ctx context.Context) error) {
	go func() {
		ctx := context.Background()
		_, _, _ = r.group.Do(dedupeKey, func() (any, error) {
			defer func() {
				if rec := recover(); rec != nil {
					level.Error(r.logger).Log("msg", "panic in background refresh task", "key", dedupeKey, "panic", fmt.Sprint(rec))
				}
			}()
			if err := task(ctx); err != nil {
				level.Error(r.logger).Log("msg", "background refresh task failed", "key", dedupeKey, "err", err)
				return nil, err
			}
			level.Info(r.logger).Log("msg", "background refresh complete", "key", dedupeKey)
			return nil, nil
		})
	}()
}
