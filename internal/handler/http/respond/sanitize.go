package respond

import "regexp"

// Patterns are applied in order; the Anthropic key pattern must run before
// the generic OpenAI one.
var (
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)
	geminiKeyPattern    = regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)
	keyParamPattern     = regexp.MustCompile(`([?&]key=)[^&\s"]+`)
	dsnPasswordPattern  = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns err's message with API keys and DSN passwords masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString masks secrets in s.
func SanitizeString(s string) string {
	s = anthropicKeyPattern.ReplaceAllString(s, "sk-ant-****")
	s = openaiKeyPattern.ReplaceAllString(s, "sk-****")
	s = geminiKeyPattern.ReplaceAllString(s, "AIza****")
	s = keyParamPattern.ReplaceAllString(s, "${1}****")
	s = dsnPasswordPattern.ReplaceAllString(s, "://$1:****@")
	return s
}
