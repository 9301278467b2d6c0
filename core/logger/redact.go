package logger

import "regexp"

var (
	botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	secretRe   = regexp.MustCompile(`(?i)\b(api_key|access_token|token|password)=[^&\s"']+`)
)

// Redact masks Telegram bot tokens and secret query parameters in s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = botTokenRe.ReplaceAllString(s, "bot<redacted>")
	return secretRe.ReplaceAllString(s, "$1=<redacted>")
}

// RedactError returns the redacted message of err, or "" for nil.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error())
}
