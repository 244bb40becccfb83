package utils

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

const specialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// IsStrongPassword 至少 minLen 位，且包含大写、小写、数字、特殊字符
func IsStrongPassword(pw string, minLen int) bool {
	if minLen <= 0 {
		minLen = 8
	}
	if len([]rune(pw)) < minLen {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit && strings.ContainsAny(pw, specialChars)
}
