package services

import (
	"context"
	"log/slog"
	"time"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
)

type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) AuditLoggerInterface {
	return &AuditLogger{
		logger: logger,
	}
}

func (al *AuditLogger) LogDetectionStarted(ctx context.Context, start, end time.Time) {
	al.logger.InfoContext(ctx, "duplicate detection started",
		slog.String("event_type", "detection_started"),
		slog.Time("window_start", start),
		slog.Time("window_end", end),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogDetectionCompleted(ctx context.Context, candidates int, durationMs int64) {
	al.logger.InfoContext(ctx, "duplicate detection completed",
		slog.String("event_type", "detection_completed"),
		slog.Int("candidates", candidates),
		slog.Int64("duration_ms", durationMs),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogDetectionFailed(ctx context.Context, errorMsg string) {
	al.logger.WarnContext(ctx, "duplicate detection failed",
		slog.String("event_type", "detection_failed"),
		slog.String("error", errorMsg),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogDuplicateConfirmed(ctx context.Context, id uuid.UUID, matchType string, confidence float64) {
	al.logger.InfoContext(ctx, "duplicate confirmed",
		slog.String("event_type", "duplicate_confirmed"),
		slog.String("confirmed_duplicate_id", id.String()),
		slog.String("match_type", matchType),
		slog.Float64("confidence", confidence),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogDuplicateUnconfirmed(ctx context.Context, id uuid.UUID) {
	al.logger.InfoContext(ctx, "duplicate unconfirmed",
		slog.String("event_type", "duplicate_unconfirmed"),
		slog.String("confirmed_duplicate_id", id.String()),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogManualExclusion(ctx context.Context, ref models.TransactionRef, reason string) {
	al.logger.InfoContext(ctx, "transaction manually excluded",
		slog.String("event_type", "manual_exclusion"),
		slog.String("transaction", ref.String()),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogManualInclusion(ctx context.Context, ref models.TransactionRef) {
	al.logger.InfoContext(ctx, "transaction re-included",
		slog.String("event_type", "manual_inclusion"),
		slog.String("transaction", ref.String()),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogSuggestionDismissed(ctx context.Context, accountID *int64, nameFragment string) {
	attrs := []any{
		slog.String("event_type", "suggestion_dismissed"),
		slog.String("name_fragment", nameFragment),
		slog.Bool("persisted", accountID != nil),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	}
	if accountID != nil {
		attrs = append(attrs, slog.Int64("account_id", *accountID))
	}
	al.logger.InfoContext(ctx, "suggestion dismissed", attrs...)
}

func (al *AuditLogger) LogPatternCreated(ctx context.Context, id uuid.UUID, expression string, userDefined bool) {
	al.logger.InfoContext(ctx, "pattern created",
		slog.String("event_type", "pattern_created"),
		slog.String("pattern_id", id.String()),
		slog.String("expression", expression),
		slog.Bool("user_defined", userDefined),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogPatternLearned(ctx context.Context, id uuid.UUID, expression string, sourceCount int) {
	al.logger.InfoContext(ctx, "pattern learned from exclusions",
		slog.String("event_type", "pattern_learned"),
		slog.String("pattern_id", id.String()),
		slog.String("expression", expression),
		slog.Int("source_exclusions", sourceCount),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogPatternDeleted(ctx context.Context, id uuid.UUID) {
	al.logger.InfoContext(ctx, "pattern deleted",
		slog.String("event_type", "pattern_deleted"),
		slog.String("pattern_id", id.String()),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func getCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if correlationID, ok := ctx.Value("correlation_id").(string); ok {
		return correlationID
	}

	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}

	return ""
}
