package block

import (
	"log/slog"

	"github.com/c360/sigflow/metric"
)

// Dependencies provides the external collaborators handed to block factories
type Dependencies struct {
	Logger          *slog.Logger            // can be nil, defaults to slog.Default()
	MetricsRegistry *metric.MetricsRegistry // can be nil, disables edge metrics
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithBlock returns a logger scoped to one block
func (d Dependencies) GetLoggerWithBlock(name string) *slog.Logger {
	return d.GetLogger().With("block", name)
}
