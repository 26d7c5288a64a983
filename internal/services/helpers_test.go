package services

import (
	"io"
	"log/slog"
	"time"
)

// noopMetrics satisfies MetricsRecorderInterface without touching a registry,
// so suites can construct services repeatedly.
type noopMetrics struct{}

func (noopMetrics) IncrementCounter(name string, tags map[string]string)           {}
func (noopMetrics) RecordProcessingTime(name string, duration time.Duration)       {}
func (noopMetrics) RecordGauge(name string, value float64, tags map[string]string) {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAudit() AuditLoggerInterface {
	return NewAuditLogger(testLogger())
}
