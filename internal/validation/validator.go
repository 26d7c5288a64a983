package validation

import (
	"reflect"
	"strings"

	"clarify-engine/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

// GetValidate returns the underlying validator.Validate instance for use with Echo
func (v *Validator) GetValidate() *validator.Validate {
	return v.validate
}

// singleton instance of the validator
var instance *Validator

// GetValidator returns the singleton validator instance
func GetValidator() *Validator {
	if instance == nil {
		instance = NewValidator()
	}
	return instance
}

// NewValidator creates a new validator instance with custom rules and configuration
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("match_type", validateMatchType)
	_ = v.RegisterValidation("transaction_source", validateTransactionSource)
	_ = v.RegisterValidation("investment_account_type", validateInvestmentAccountType)
	_ = v.RegisterValidation("exclusion_type", validateExclusionType)
	_ = v.RegisterValidation("wildcard_expression", validateWildcardExpression)
	_ = v.RegisterValidation("confidence", validateConfidence)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Custom validation functions

// validateMatchType validates that a match type is one of the known candidate types
func validateMatchType(fl validator.FieldLevel) bool {
	return models.IsValidMatchType(fl.Field().String())
}

// validateTransactionSource validates that a source is bank, credit_card or investment
func validateTransactionSource(fl validator.FieldLevel) bool {
	return models.IsValidSource(fl.Field().String())
}

// validateInvestmentAccountType validates that the account type is one of the
// supported investment account types. Empty is allowed; the matcher treats it
// as "search all types".
func validateInvestmentAccountType(fl validator.FieldLevel) bool {
	accountType := fl.Field().String()
	if accountType == "" {
		return true
	}
	switch accountType {
	case models.AccountTypePension, models.AccountTypeStudyFund,
		models.AccountTypeBrokerage, models.AccountTypeSavings,
		models.AccountTypeProvident:
		return true
	default:
		return false
	}
}

// validateExclusionType validates that an exclusion type is manual or duplicate
func validateExclusionType(fl validator.FieldLevel) bool {
	return models.IsValidExclusionType(fl.Field().String())
}

// validateWildcardExpression validates that a pattern expression compiles
// under the `%`-wildcard dialect
func validateWildcardExpression(fl validator.FieldLevel) bool {
	_, err := models.CompileExpression(fl.Field().String())
	return err == nil
}

// validateConfidence validates that a confidence value lies in [0, 1]
func validateConfidence(fl validator.FieldLevel) bool {
	value := fl.Field().Float()
	return value >= 0 && value <= 1
}
