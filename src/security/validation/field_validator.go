package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrValidationFailed is the sentinel wrapped by every validator error.
var ErrValidationFailed = fmt.Errorf("validation failed")

// Constants for lengths remain here
const (
	DefaultMaxStringLength = 255
	MaxNameLength          = 120
	MaxCategoryLength      = 60
	MaxDescriptionLength   = 1024
	MaxNotesLength         = 2048
	MaxJournalLength       = 20000
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// --- Amount Validators ---

// ValidateAmount parses a decimal amount and requires it to be strictly
// positive. Amounts are stored as non-negative magnitudes; the sign applied
// to balances is derived from the transaction type, never from the value.
func ValidateAmount(s, fieldName string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	val, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') is not a valid amount: %v", ErrValidationFailed, fieldName, s, err)
	}
	if !val.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrValidationFailed, fieldName)
	}
	return val, nil
}

// ValidateNonNegativeAmount parses a decimal amount allowing zero
// (opening balances, charges, goal progress).
func ValidateNonNegativeAmount(s, fieldName string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	val, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') is not a valid amount: %v", ErrValidationFailed, fieldName, s, err)
	}
	if val.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s cannot be negative", ErrValidationFailed, fieldName)
	}
	return val, nil
}

// ValidateSignedAmount parses a decimal that may be negative
// (party opening balances: positive receivable, negative payable).
func ValidateSignedAmount(s, fieldName string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	val, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') is not a valid amount: %v", ErrValidationFailed, fieldName, s, err)
	}
	return val, nil
}

// --- Date Validators ---

// ValidateDateString checks if a string is a valid date in "YYYY-MM-DD" format.
// The format is chosen so stored dates sort lexicographically.
func ValidateDateString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is not a valid date (expected YYYY-MM-DD): %v", ErrValidationFailed, fieldName, s, err)
	}
	if t.Format("2006-01-02") != trimmed {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is an invalid date (e.g., day/month mismatch)", ErrValidationFailed, fieldName, s)
	}
	return t, nil
}

var monthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidateMonthString checks if a string is a valid "YYYY-MM" budget month.
func ValidateMonthString(s, fieldName string) error {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return err
	}
	if !monthRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (YYYY-MM)", ErrValidationFailed, fieldName, s)
	}
	return nil
}

// --- Identifier Validator ---

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateEntityID checks format and length for entity ids. Imported
// snapshots carry client-generated ids (epoch-millis strings, suffixed
// variants), so anything alphanumeric with hyphens/underscores is accepted.
func ValidateEntityID(s, fieldName string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	if err := ValidateStringMaxLength(trimmed, DefaultMaxStringLength, fieldName); err != nil {
		return err
	}
	if !idRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (alphanumeric with hyphens/underscores)", ErrValidationFailed, fieldName, s)
	}
	return nil
}
