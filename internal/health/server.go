// Package health tracks the liveness of the pengaduan service.
//
// This package implements:
//   - Uptime monitoring
//   - Outcome of the last report poll
//   - A gin handler for GET /health
package health

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// degradedAfter is the number of consecutive failed polls after which the
// service reports itself as degraded.
const degradedAfter = 3

// Status is returned by the /health endpoint.
//
// Fields:
//   - Status: "healthy" or "degraded"
//   - Uptime: How long the service has been running
//   - LastPollTime: When the last report poll finished
//   - LastPollStatus: "success", "not started" or the error of the last poll
//   - Reports: Reports seen by the last successful poll
//   - ConsecutiveFailures: Failed polls since the last success
type Status struct {
	Status              string `json:"status"`
	Uptime              string `json:"uptime"`
	LastPollTime        string `json:"last_poll_time"`
	LastPollStatus      string `json:"last_poll_status"`
	Reports             int    `json:"reports"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// Monitor tracks service health. Safe for concurrent use.
type Monitor struct {
	mu             sync.RWMutex
	startTime      time.Time
	lastPollTime   time.Time
	lastPollStatus string
	reports        int
	failures       int
	now            func() time.Time
}

// NewMonitor creates a monitor whose uptime starts now.
func NewMonitor() *Monitor {
	return &Monitor{
		startTime:      time.Now(),
		lastPollStatus: "not started",
		now:            time.Now,
	}
}

// RecordPoll stores the outcome of a poll. total is ignored on failure.
func (m *Monitor) RecordPoll(total int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPollTime = m.now()
	if err != nil {
		m.lastPollStatus = fmt.Sprintf("error: %v", err)
		m.failures++
		return
	}
	m.lastPollStatus = "success"
	m.reports = total
	m.failures = 0
}

// ConsecutiveFailures returns the number of failed polls in a row.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures
}

// GetStatus returns the current health status.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		Status:              "healthy",
		Uptime:              m.now().Sub(m.startTime).Round(time.Second).String(),
		LastPollStatus:      m.lastPollStatus,
		Reports:             m.reports,
		ConsecutiveFailures: m.failures,
	}
	if !m.lastPollTime.IsZero() {
		s.LastPollTime = m.lastPollTime.Format("2006-01-02 15:04:05")
	}
	if m.failures >= degradedAfter {
		s.Status = "degraded"
	}
	return s
}

// Handler serves GET /health. A degraded service answers 503 so load
// balancers can take it out of rotation.
func (m *Monitor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := m.GetStatus()
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
