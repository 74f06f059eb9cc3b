package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"task-ledger/internal/config"
)

// Validator provides common validation utilities
type Validator struct {
	addressRegex *regexp.Regexp
	config       *config.Config
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		addressRegex: regexp.MustCompile(`^0[xX][0-9a-fA-F]{40}$`),
		config:       nil, // Use defaults
	}
}

// NewValidatorWithConfig creates a new validator instance with configuration
func NewValidatorWithConfig(cfg *config.Config) *Validator {
	v := NewValidator()
	v.config = cfg
	return v
}

// IsNonEmptyString checks if a string is not empty after trimming whitespace
func (v *Validator) IsNonEmptyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidAddress checks for 0x followed by 40 hex digits
func (v *Validator) IsValidAddress(s string) bool {
	return v.addressRegex.MatchString(strings.TrimSpace(s))
}

// IsValidTaskID checks if a task ID can index a task list. Ids start at 0.
func (v *Validator) IsValidTaskID(id int64) bool {
	return id >= 0
}

// IsValidTextLength checks text against the configured limit. Empty text is
// always accepted and a limit of 0 disables the check.
func (v *Validator) IsValidTextLength(text string) bool {
	limit := v.getMaxTextLength()
	return limit == 0 || utf8.RuneCountInString(text) <= limit
}

// MaxTextLength returns the configured text limit, 0 when unlimited
func (v *Validator) MaxTextLength() int {
	return v.getMaxTextLength()
}

// getMaxTextLength returns configured maximum text length or default
func (v *Validator) getMaxTextLength() int {
	if v.config != nil {
		return v.config.Ledger.MaxTextLength
	}
	return 0 // Default: unlimited
}
