package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mroshb/betpals/pkg/utils"
)

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeString trims input, drops null bytes and caps it at maxRunes.
func SanitizeString(input string, maxRunes int) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return utils.Truncate(input, maxRunes)
}

// SanitizeHTML removes all HTML tags. The result is plain text: entities the
// policy escapes are decoded again, so output encoding stays with the client.
func SanitizeHTML(input string) string {
	return html.UnescapeString(htmlPolicy.Sanitize(input))
}

// SanitizeText is the cleaning applied to all user-written text.
func SanitizeText(input string, maxRunes int) string {
	return SanitizeString(SanitizeHTML(strings.ReplaceAll(input, "\x00", "")), maxRunes)
}

// SanitizeOptional cleans an optional field, turning blank input into nil.
func SanitizeOptional(input *string, maxRunes int) *string {
	if input == nil {
		return nil
	}
	cleaned := SanitizeText(*input, maxRunes)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// ValidateImageURL accepts absolute http(s) URLs only.
func ValidateImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
