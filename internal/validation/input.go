package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

const (
	MaxDisplayNameLength = 100
	MaxCommentLength     = 2000
	MaxEmailLength       = 254
)

// ValidateLength checks the rune length of value.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("%s must be at least %d characters", fieldName, min))
	}
	if max > 0 && length > max {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("%s must be at most %d characters", fieldName, max))
	}
	return nil
}

func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// ValidateNonEmpty returns a MissingField error for blank values.
func ValidateNonEmpty(fieldName, value string) error {
	if IsBlank(value) {
		return apperror.New(apperror.ErrCodeMissingField, fieldName+" is required")
	}
	return nil
}

// EmailLocalPart returns the part of email before "@", or the whole trimmed
// value when there is none.
func EmailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return email[:at]
	}
	return email
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
