package worker

import (
	"time"

	"github.com/okian/pcmatch/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSolveTimeout bounds each solve.
func WithSolveTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.solveTimeout = d
		}
	}
}

// WithRetryAttempts sets how many times a record save is attempted.
func WithRetryAttempts(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.retryAttempts = n
		}
	}
}

// WithRetryDelay sets the initial backoff between save attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.retryDelay = d
		}
	}
}
