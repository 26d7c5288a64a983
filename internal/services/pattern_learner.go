package services

import (
	"context"
	"log/slog"
	"sync"

	"clarify-engine/internal/config"

	"github.com/robfig/cron/v3"
)

// patternLearner runs pattern learning off the request path: on a cron
// schedule and, debounced, after a burst of new manual exclusions. Resolution
// writes never wait on it.
type patternLearner struct {
	service PatternServiceInterface
	cron    *cron.Cron
	cfg     config.ReconciliationConfig
	logger  *slog.Logger

	mu      sync.Mutex
	pending int
}

// NewPatternLearner creates a new async pattern learner
func NewPatternLearner(service PatternServiceInterface, cfg config.ReconciliationConfig, logger *slog.Logger) PatternLearnerInterface {
	return &patternLearner{
		service: service,
		cron:    cron.New(),
		cfg:     cfg,
		logger:  logger,
	}
}

// Start schedules the periodic learning pass
func (l *patternLearner) Start() {
	if _, err := l.cron.AddFunc(l.cfg.LearnSchedule, l.run); err != nil {
		l.logger.Error("failed to schedule pattern learning",
			slog.String("schedule", l.cfg.LearnSchedule),
			slog.String("error", err.Error()),
		)
		return
	}
	l.cron.Start()
	l.logger.Info("pattern learner started", slog.String("schedule", l.cfg.LearnSchedule))
}

// Stop halts the schedule; an in-flight pass finishes.
func (l *patternLearner) Stop() {
	l.cron.Stop()
}

// NoteManualExclusion counts a new manual exclusion and triggers an early
// learning pass once enough accumulate between scheduled runs.
func (l *patternLearner) NoteManualExclusion() {
	l.mu.Lock()
	l.pending++
	trigger := l.pending >= l.cfg.LearnDebounceCount
	if trigger {
		l.pending = 0
	}
	l.mu.Unlock()

	if trigger {
		go l.run()
	}
}

func (l *patternLearner) run() {
	learned, err := l.service.LearnPatterns(context.Background())
	if err != nil {
		l.logger.Warn("pattern learning pass failed", slog.String("error", err.Error()))
		return
	}
	if learned > 0 {
		l.logger.Info("pattern learning pass completed", slog.Int("patterns_learned", learned))
	}
}
