package generate

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var errNotObject = errors.New("json value is not an object")

// Strategy turns isolated model text into a JSON object. Strategies are pure
// and independent: each receives the same isolated text.
type Strategy struct {
	Name  string
	Parse func(text string) (map[string]any, error)
}

// Strategies is the repair order used by ParseResponse, least invasive first.
var Strategies = []Strategy{
	{Name: "as-is", Parse: parseAsIs},
	{Name: "single-to-double-quotes", Parse: parseSingleQuotes},
	{Name: "escape-newlines", Parse: parseEscapedNewlines},
	{Name: "strip-control-chars", Parse: parseStrippedControls},
	{Name: "requote-keys-and-values", Parse: parseRequoted},
}

func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}

func parseAsIs(text string) (map[string]any, error) {
	return decodeObject(text)
}

func parseSingleQuotes(text string) (map[string]any, error) {
	return decodeObject(strings.ReplaceAll(text, "'", `"`))
}

// parseEscapedNewlines escapes raw CR/LF characters that appear inside
// double-quoted strings. Newlines between tokens are left alone.
func parseEscapedNewlines(text string) (map[string]any, error) {
	var b strings.Builder
	b.Grow(len(text) + 16)

	inString, escaped := false, false
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString && r == '\n':
			b.WriteString(`\n`)
			continue
		case inString && r == '\r':
			b.WriteString(`\r`)
			continue
		}
		b.WriteRune(r)
	}
	return decodeObject(b.String())
}

func parseStrippedControls(text string) (map[string]any, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
	return decodeObject(cleaned)
}

var (
	bareKeyPattern    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuotedValue = regexp.MustCompile(`:\s*'([^']*)'`)
	bareValuePattern  = regexp.MustCompile(`:\s*([^"\s\[\]{},][^,}\]\n]*?)\s*([,}\]\n])`)
	quotedLiteral     = regexp.MustCompile(`:\s*"(-?\d+(?:\.\d+)?|true|false|null)"`)
)

// parseRequoted quotes bare keys and bare scalar values, then turns quoted
// numbers, booleans and null back into literals. Text already inside double
// quotes is never rewritten.
func parseRequoted(text string) (map[string]any, error) {
	s := outsideStrings(text, func(seg string) string {
		return bareKeyPattern.ReplaceAllString(seg, `$1"$2":`)
	})
	s = outsideStrings(s, func(seg string) string {
		return singleQuotedValue.ReplaceAllString(seg, `: "$1"`)
	})
	s = outsideStrings(s, func(seg string) string {
		return bareValuePattern.ReplaceAllString(seg, `: "$1"$2`)
	})
	s = quotedLiteral.ReplaceAllString(s, `: $1`)
	return decodeObject(s)
}

// outsideStrings applies fn to every stretch of text between double-quoted
// strings and copies the quoted strings unchanged. An unterminated string
// runs to the end of the text.
func outsideStrings(text string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(text))
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '"' {
			continue
		}
		b.WriteString(fn(text[start:i]))
		end := len(text)
		for j := i + 1; j < len(text); j++ {
			if text[j] == '\\' {
				j++
				continue
			}
			if text[j] == '"' {
				end = j + 1
				break
			}
		}
		b.WriteString(text[i:end])
		start = end
		i = end - 1
	}
	if start < len(text) {
		b.WriteString(fn(text[start:]))
	}
	return b.String()
}
