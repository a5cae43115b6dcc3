// Package validate holds field-level checks and the fail-fast rule set that
// composes them. Every check is pure and returns a *failure.Failure naming
// the offending field.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/xenking/orderdesk/internal/domain/failure"
)

const (
	minPhoneDigits    = 7
	maxPhoneDigits    = 15
	minPasswordLength = 8
)

var phoneShape = regexp.MustCompile(`^\+?[0-9(][0-9 ().\-]*[0-9]$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs.
	_ = val.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return isPhone(fl.Field().String())
	})
	_ = val.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})
	return val
}

// NonEmpty fails if value is blank or whitespace only.
func NonEmpty(value, label string) error {
	if strings.TrimSpace(value) == "" {
		return failure.New(failure.ReasonFieldEmpty, label)
	}
	return nil
}

// Email fails unless value looks like local@domain.tld.
func Email(value string) error {
	if err := v.Var(value, "required,email"); err != nil {
		return failure.New(failure.ReasonInvalidEmail, value)
	}
	// The validator accepts dotless domains; a TLD is required here.
	at := strings.LastIndexByte(value, '@')
	if !strings.Contains(value[at+1:], ".") {
		return failure.New(failure.ReasonInvalidEmail, value)
	}
	return nil
}

// PhoneNumber fails unless value is digits with optional separators and a
// leading plus.
func PhoneNumber(value string) error {
	if err := v.Var(value, "required,phone"); err != nil {
		return failure.New(failure.ReasonInvalidPhone, value)
	}
	return nil
}

// NumericString fails unless value is exactly n ASCII digits.
func NumericString(value string, n int, label string) error {
	if err := v.Var(value, "required,number,len="+strconv.Itoa(n)); err != nil {
		return failure.New(failure.ReasonInvalidNumericString, label, n)
	}
	return nil
}

// DateNotFuture fails if the calendar day of date is after the calendar day
// of now. Each value's day is read in its own location.
func DateNotFuture(date, now time.Time, label string) error {
	if civilDay(date).After(civilDay(now)) {
		return failure.New(failure.ReasonDateInFuture, label, date.Format(time.DateOnly))
	}
	return nil
}

// StrongPassword fails unless value has at least 8 characters and contains
// upper case, lower case, digit and symbol characters.
func StrongPassword(value string) error {
	if err := v.Var(value, "required,strongpassword"); err != nil {
		return failure.New(failure.ReasonWeakPassword)
	}
	return nil
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isPhone(s string) bool {
	if !phoneShape.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

func isStrongPassword(s string) bool {
	if len([]rune(s)) < minPasswordLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
