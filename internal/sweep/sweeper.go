package sweep

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Package sweep runs periodic background jobs. Each sweeper is single-flight:
// a tick that arrives while the previous run is still going is skipped, so a
// slow sweep never overlaps itself. Sweeps run concurrently with request
// traffic by design.

// Sweeper drives one job on a fixed interval.
type Sweeper struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error

	mu sync.Mutex
}

// New creates a sweeper that calls run every interval once started.
func New(name string, interval time.Duration, run func(ctx context.Context) error) *Sweeper {
	return &Sweeper{name: name, interval: interval, run: run}
}

// Start launches the sweep loop. It returns immediately; the loop stops when
// ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce triggers one sweep if none is in flight; it reports whether the
// sweep actually ran.
func (s *Sweeper) RunOnce(ctx context.Context) bool {
	if !s.mu.TryLock() {
		logJSON(map[string]any{
			"component": "sweep",
			"event":     "sweep_skipped",
			"sweeper":   s.name,
			"msg":       "previous run still in flight",
		})
		return false
	}
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.run(ctx); err != nil {
		logJSON(map[string]any{
			"component":     "sweep",
			"event":         "sweep_failed",
			"level":         "error",
			"sweeper":       s.name,
			"error_message": err.Error(),
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return true
	}
	return true
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		data["level"] = "info"
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal sweep log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
