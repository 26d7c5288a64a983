package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"clarify-engine/internal/config"
	"clarify-engine/internal/models"
	"clarify-engine/internal/repositories"
	"clarify-engine/internal/similarity"
)

var (
	ErrInvalidAccountType = errors.New("unknown investment account type")
)

// typeNameDictionary holds the naming conventions for each account type.
// A transaction name containing one of these terms is a weak signal that it
// belongs to an account of that type.
var typeNameDictionary = map[string][]string{
	models.AccountTypePension:   {"pension", "פנסיה", "קרן פנסיה"},
	models.AccountTypeStudyFund: {"study fund", "hishtalmut", "השתלמות", "קרן השתלמות"},
	models.AccountTypeBrokerage: {"brokerage", "trade", "securities", "מסחר", "ניירות ערך"},
	models.AccountTypeSavings:   {"savings", "deposit", "חיסכון", "פיקדון"},
	models.AccountTypeProvident: {"provident", "gemel", "גמל", "קופת גמל"},
}

// accountMatcherService implements AccountMatcherServiceInterface. Tiers are
// evaluated in strict priority order: the first tier whose best score meets
// its threshold wins, even when a later tier would have scored higher.
type accountMatcherService struct {
	accountData repositories.AccountDataRepositoryInterface
	suppression LinkSuppressionChecker
	cfg         config.ReconciliationConfig
	logger      *slog.Logger
	metrics     MetricsRecorderInterface
}

// NewAccountMatcherService creates a new account matcher service. The
// suppression checker may be nil when dismissals should not throttle
// suggestions.
func NewAccountMatcherService(
	accountData repositories.AccountDataRepositoryInterface,
	suppression LinkSuppressionChecker,
	cfg config.ReconciliationConfig,
	logger *slog.Logger,
	metrics MetricsRecorderInterface,
) AccountMatcherServiceInterface {
	return &accountMatcherService{
		accountData: accountData,
		suppression: suppression,
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
	}
}

// MatchAccount resolves a free-text transaction or account name. accountType
// is optional; when set it narrows the type-dictionary tier.
func (s *accountMatcherService) MatchAccount(ctx context.Context, name, accountType string) (*models.AccountMatch, error) {
	if accountType != "" && !isValidAccountType(accountType) {
		return nil, ErrInvalidAccountType
	}
	if strings.TrimSpace(name) == "" {
		return &models.AccountMatch{Matched: false}, nil
	}

	if match, err := s.matchLinkedAccounts(name); err != nil {
		return nil, err
	} else if match != nil {
		suppressed, err := s.linkSuppressed(ctx, match, name)
		if err != nil {
			return nil, err
		}
		// A dismissed account suggestion falls through to the weaker tiers
		// instead of resurfacing.
		if !suppressed {
			s.metrics.IncrementCounter("account_match.request", map[string]string{"tier": match.Tier})
			return match, nil
		}
		s.metrics.IncrementCounter("account_match.suppressed", nil)
	}

	if match, err := s.matchKnownVendors(name); err != nil {
		return nil, err
	} else if match != nil {
		s.metrics.IncrementCounter("account_match.request", map[string]string{"tier": match.Tier})
		return match, nil
	}

	if match, err := s.matchRules(name); err != nil {
		return nil, err
	} else if match != nil {
		s.metrics.IncrementCounter("account_match.request", map[string]string{"tier": match.Tier})
		return match, nil
	}

	if match := s.matchTypeDictionary(name, accountType); match != nil {
		s.metrics.IncrementCounter("account_match.request", map[string]string{"tier": match.Tier})
		return match, nil
	}

	s.metrics.IncrementCounter("account_match.request", map[string]string{"tier": "none"})
	return &models.AccountMatch{Matched: false}, nil
}

// linkSuppressed consults the dismissal ledger for an account-bearing match.
func (s *accountMatcherService) linkSuppressed(ctx context.Context, match *models.AccountMatch, name string) (bool, error) {
	if s.suppression == nil || match.AccountID == nil {
		return false, nil
	}
	return s.suppression.IsLinkSuggestionSuppressed(ctx, *match.AccountID, similarity.Normalize(name))
}

// matchLinkedAccounts is the ground-truth tier: a confirmed link is fully
// trusted, so the match confidence is 1.0 regardless of the raw similarity.
func (s *accountMatcherService) matchLinkedAccounts(name string) (*models.AccountMatch, error) {
	linked, err := s.accountData.GetLinkedNames()
	if err != nil {
		return nil, err
	}

	var best *models.LinkedAccountName
	bestScore := 0.0
	for i := range linked {
		score := similarity.Score(name, linked[i].Name)
		if score > bestScore {
			bestScore = score
			best = &linked[i]
		}
	}

	if best == nil || bestScore < s.cfg.LinkedAccountThreshold {
		return nil, nil
	}
	return &models.AccountMatch{
		Matched:     true,
		Tier:        models.MatchTierLinkedAccount,
		AccountID:   &best.AccountID,
		MatchedName: best.Name,
		Confidence:  1.0,
	}, nil
}

func (s *accountMatcherService) matchKnownVendors(name string) (*models.AccountMatch, error) {
	vendors, err := s.accountData.GetKnownVendors()
	if err != nil {
		return nil, err
	}

	var best *models.KnownVendor
	bestScore := 0.0
	for i := range vendors {
		score := similarity.Score(name, vendors[i].Name)
		if score > bestScore {
			bestScore = score
			best = &vendors[i]
		}
	}

	if best == nil || bestScore < s.cfg.KnownVendorThreshold {
		return nil, nil
	}
	return &models.AccountMatch{
		Matched:     true,
		Tier:        models.MatchTierKnownVendor,
		CategoryID:  &best.CategoryID,
		MatchedName: best.Name,
		Confidence:  bestScore,
	}, nil
}

func (s *accountMatcherService) matchRules(name string) (*models.AccountMatch, error) {
	rules, err := s.accountData.GetRules()
	if err != nil {
		return nil, err
	}

	var best *models.CategorizationRule
	bestScore := 0.0
	for i := range rules {
		score := similarity.Score(name, rules[i].NamePattern)
		if score > bestScore {
			bestScore = score
			best = &rules[i]
		}
	}

	if best == nil || bestScore < s.cfg.RuleThreshold {
		return nil, nil
	}
	return &models.AccountMatch{
		Matched:     true,
		Tier:        models.MatchTierRule,
		CategoryID:  &best.CategoryID,
		MatchedName: best.NamePattern,
		Confidence:  bestScore,
	}, nil
}

// matchTypeDictionary is the weakest tier: naming conventions per account
// type. A term contained verbatim in the normalized name counts as a strong
// hit even when the overall string similarity is low.
func (s *accountMatcherService) matchTypeDictionary(name, accountType string) *models.AccountMatch {
	types := []string{accountType}
	if accountType == "" {
		types = []string{
			models.AccountTypePension,
			models.AccountTypeStudyFund,
			models.AccountTypeBrokerage,
			models.AccountTypeSavings,
			models.AccountTypeProvident,
		}
	}

	normalized := similarity.Normalize(name)
	bestScore := 0.0
	bestTerm := ""
	hits := 0

	for _, t := range types {
		for _, term := range typeNameDictionary[t] {
			score := similarity.Score(name, term)
			if strings.Contains(normalized, similarity.Normalize(term)) && score < 0.9 {
				score = 0.9
			}
			if score >= s.cfg.TypePatternThreshold {
				hits++
			}
			if score > bestScore {
				bestScore = score
				bestTerm = term
			}
		}
	}

	if bestScore < s.cfg.TypePatternThreshold {
		return nil
	}
	return &models.AccountMatch{
		Matched:     true,
		Tier:        models.MatchTierTypePattern,
		MatchedName: bestTerm,
		Confidence:  bestScore,
		SourceCount: hits,
	}
}

func isValidAccountType(accountType string) bool {
	switch accountType {
	case models.AccountTypePension, models.AccountTypeStudyFund,
		models.AccountTypeBrokerage, models.AccountTypeSavings,
		models.AccountTypeProvident:
		return true
	default:
		return false
	}
}
