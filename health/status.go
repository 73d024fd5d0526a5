package health

import (
	"fmt"
	"regexp"
	"time"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

var (
	urlRegex        = regexp.MustCompile(`[a-z]+://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`(^|\s)/[a-zA-Z0-9/_.-]+`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a block, a run, or the whole process
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related counters
type Metrics struct {
	Uptime           time.Duration `json:"uptime"`
	ErrorCount       int           `json:"error_count"`
	SamplesProcessed int64         `json:"samples_processed,omitempty"`
	Invocations      int64         `json:"invocations,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == StatusDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == StatusUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy with subStatus appended
func (s Status) WithSubStatus(subStatus Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, subStatus)
	return s
}

// sanitizeErrorMessage strips URLs, absolute paths and credential-looking
// assignments from error text before it is exposed on /health.
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}
	sanitized := urlRegex.ReplaceAllString(err, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "$1[PATH]")
	return credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
}

// BlockReport is the per-block input to FromBlock. State is the lifecycle
// state name (initialized, running, stopped, error).
type BlockReport struct {
	State       string
	Err         error
	Started     time.Time
	Samples     int64
	Invocations int64
}

// FromBlock derives a health status from a block's lifecycle state.
// A block in the error state is unhealthy, one not yet started is degraded,
// running and stopped blocks are healthy.
func FromBlock(name string, r BlockReport) Status {
	var s Status
	switch {
	case r.State == "error" || r.Err != nil:
		msg := "block failed"
		if r.Err != nil {
			msg = sanitizeErrorMessage(r.Err.Error())
		}
		s = NewUnhealthy(name, msg)
	case r.State == "initialized":
		s = NewDegraded(name, "block not started")
	case r.State == "stopped":
		s = NewHealthy(name, "block completed")
	default:
		s = NewHealthy(name, fmt.Sprintf("block %s", r.State))
	}

	m := &Metrics{
		SamplesProcessed: r.Samples,
		Invocations:      r.Invocations,
	}
	if !r.Started.IsZero() {
		m.Uptime = time.Since(r.Started)
	}
	if r.Err != nil {
		m.ErrorCount = 1
	}
	return s.WithMetrics(m)
}
