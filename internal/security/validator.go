package security

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

	queryDenylist = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script.*?>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)eval\s*\(`),
		regexp.MustCompile(`(?i)document\.`),
		regexp.MustCompile(`(?i)window\.`),
		regexp.MustCompile(`(?i)alert\s*\(`),
	}
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword checks password strength and returns every violated rule.
func ValidatePassword(password string) (bool, []string) {
	var errs []string
	if len(password) < 8 {
		errs = append(errs, "Password must be at least 8 characters long")
	}
	if !lowerPattern.MatchString(password) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !upperPattern.MatchString(password) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !digitPattern.MatchString(password) {
		errs = append(errs, "Password must contain at least one digit")
	}
	if !specialPattern.MatchString(password) {
		errs = append(errs, "Password must contain at least one special character")
	}
	return len(errs) == 0, errs
}

// SanitizeInput escapes characters that could carry markup into templates.
func SanitizeInput(input string) string {
	if input == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)
	return replacer.Replace(input)
}

// ValidateSearchQuery rejects empty, oversized or script-bearing queries.
func ValidateSearchQuery(query string) (bool, string) {
	if strings.TrimSpace(query) == "" {
		return false, "Search query cannot be empty"
	}
	if len(query) > 500 {
		return false, "Search query too long (max 500 characters)"
	}
	for _, pattern := range queryDenylist {
		if pattern.MatchString(query) {
			return false, "Invalid characters in search query"
		}
	}
	return true, ""
}

// ValidateAPIKey checks the shape of an API key, not its validity.
func ValidateAPIKey(apiKey string) bool {
	if len(apiKey) < 20 {
		return false
	}
	stripped := strings.NewReplacer("-", "", "_", "").Replace(apiKey)
	for _, r := range stripped {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return stripped != ""
}
