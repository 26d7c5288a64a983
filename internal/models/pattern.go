package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmptyExpression   = errors.New("pattern expression cannot be empty")
	ErrPatternNameNeeded = errors.New("pattern name is required")
)

// Pattern is a reusable detection rule applied to transaction names.
//
// Expressions use a minimal dialect rather than raw regular expressions:
// `%` matches any run of characters and everything else is matched literally,
// case-insensitively. The dialect maps onto Go regexp as
//
//	%          -> .*
//	literal    -> regexp.QuoteMeta(literal)
//
// with the whole expression compiled under the (?i)(?s) flags and matched
// unanchored. `%פיקדון%` therefore matches any name containing that word.
type Pattern struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name               string    `gorm:"type:varchar(100);not null" json:"name"`
	Expression         string    `gorm:"type:varchar(255);not null" json:"expression"`
	MatchType          string    `gorm:"type:varchar(30);not null" json:"match_type"`
	OverrideCategoryID *int64    `json:"override_category_id,omitempty"`
	Confidence         float64   `gorm:"not null;default:0.7" json:"confidence"`
	IsUserDefined      bool      `gorm:"not null" json:"is_user_defined"`
	IsAutoLearned      bool      `gorm:"not null" json:"is_auto_learned"`
	IsActive           bool      `gorm:"not null" json:"is_active"`
	MatchCount         int       `gorm:"not null;default:0" json:"match_count"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`

	compiled *regexp.Regexp `gorm:"-" json:"-"`
}

// BeforeCreate hook for Pattern
func (p *Pattern) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return p.Validate()
}

// Validate validates the pattern fields, including that the expression
// compiles under the engine's dialect.
func (p *Pattern) Validate() error {
	if p.Name == "" {
		return ErrPatternNameNeeded
	}
	if !IsValidMatchType(p.MatchType) {
		return ErrInvalidMatchType
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return ErrInvalidConfidence
	}
	_, err := CompileExpression(p.Expression)
	return err
}

// CompileExpression translates a `%`-wildcard expression to a Go regexp.
func CompileExpression(expression string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, ErrEmptyExpression
	}
	var sb strings.Builder
	sb.WriteString("(?is)")
	for _, part := range strings.Split(expression, "%") {
		if sb.Len() > len("(?is)") {
			sb.WriteString(".*")
		}
		sb.WriteString(regexp.QuoteMeta(part))
	}
	return regexp.Compile(sb.String())
}

// Matches reports whether the pattern matches the given transaction name.
// Compilation is cached after the first call; Validate guarantees the
// expression compiles, so a nil cache after an error means no match.
func (p *Pattern) Matches(name string) bool {
	if p.compiled == nil {
		re, err := CompileExpression(p.Expression)
		if err != nil {
			return false
		}
		p.compiled = re
	}
	return p.compiled.MatchString(name)
}

// TableName returns the table name for Pattern
func (p *Pattern) TableName() string {
	return "patterns"
}
