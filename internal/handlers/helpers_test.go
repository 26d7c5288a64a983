package handlers

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clarify-engine/internal/config"
	"clarify-engine/internal/database"
	"clarify-engine/internal/repositories"
	"clarify-engine/internal/services"

	"github.com/labstack/echo/v4"
)

// noopMetrics satisfies MetricsRecorderInterface without a registry.
type noopMetrics struct{}

func (noopMetrics) IncrementCounter(name string, tags map[string]string)           {}
func (noopMetrics) RecordProcessingTime(name string, duration time.Duration)       {}
func (noopMetrics) RecordGauge(name string, value float64, tags map[string]string) {}

// testEnv wires real services over an in-memory database, the way the
// handlers see them in production.
type testEnv struct {
	db             *database.DB
	echo           *echo.Echo
	reconciliation *ReconciliationHandler
	patterns       *PatternHandler
	accounts       *AccountMatchHandler
	health         *HealthCheckHandler
}

func newTestEnv(t *testing.T) *testEnv {
	db := database.SetupTestDB(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := services.NewAuditLogger(logger)
	cfg := config.DefaultReconciliation()

	transactions := repositories.NewTransactionRepository(db.DB)
	patterns := repositories.NewPatternRepository(db.DB)
	exclusions := repositories.NewExclusionRepository(db.DB)
	duplicates := repositories.NewDuplicateRepository(db.DB)
	dismissals := repositories.NewDismissalRepository(db.DB)
	accountData := repositories.NewAccountDataRepository(db.DB)

	detection := services.NewDetectionService(
		transactions, patterns, exclusions, duplicates,
		services.NewConfidenceScorer(cfg), cfg, logger, noopMetrics{}, audit,
	)
	resolution := services.NewResolutionService(
		transactions, duplicates, exclusions, patterns, dismissals,
		nil, cfg, logger, noopMetrics{}, audit,
	)
	patternService := services.NewPatternService(
		patterns, exclusions, transactions, cfg, logger, noopMetrics{}, audit,
	)
	matcher := services.NewAccountMatcherService(accountData, resolution, cfg, logger, noopMetrics{})

	e := echo.New()
	e.Validator = NewValidator()

	return &testEnv{
		db:             db,
		echo:           e,
		reconciliation: NewReconciliationHandler(detection, resolution),
		patterns:       NewPatternHandler(patternService, detection),
		accounts:       NewAccountMatchHandler(matcher),
		health:         NewHealthCheckHandler(db.DB),
	}
}

// request builds an echo context for a JSON request.
func (env *testEnv) request(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return env.echo.NewContext(req, rec), rec
}
