package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	MinRating = 1
	MaxRating = 5

	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 200
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 200
}

func ValidatePassword(password string) bool {
	return password != "" && len(password) <= maxPasswordBytes
}

func ValidateRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// ValidateText reports whether s is non-blank after trimming and at most max runes.
func ValidateText(s string, max int) bool {
	s = strings.TrimSpace(s)
	return s != "" && utf8.RuneCountInString(s) <= max
}
