// Package runctx defines the value threaded through every component of a
// run, replacing process-wide state (logger, run clock, configuration)
// with an explicit parameter passed down the call chain.
package runctx

import (
	"time"

	"go.uber.org/zap"

	"github.com/bejglee/duplicate-finder/internal/config"
)

// RunContext carries the logger, configuration, and start time shared by
// every stage of a run. No component keeps process-wide state of its own.
type RunContext struct {
	Logger    *zap.SugaredLogger
	Config    config.Config
	StartedAt time.Time
}

// New builds a RunContext for a fresh run.
func New(logger *zap.SugaredLogger, cfg config.Config) *RunContext {
	return &RunContext{
		Logger:    logger,
		Config:    cfg,
		StartedAt: time.Now(),
	}
}

// Elapsed returns the time since the run started.
func (rc *RunContext) Elapsed() time.Duration {
	return time.Since(rc.StartedAt)
}
