// ABOUTME: {{DATE(...)}} and {{TIME(...)}} placeholder substitution for card text
// ABOUTME: Unknown or unparsable placeholders pass through unchanged

package translate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var tokenPattern = regexp.MustCompile(`\{\{(.+?)\}\}`)

// isoLayouts are tried in order when parsing a placeholder's timestamp argument.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// SubstituteTokens replaces every {{DATE(iso, format)}} and {{TIME(iso)}} placeholder in s.
// Placeholders are matched non-greedily and substituted independently, left to right.
//
// DATE formats: "long" gives "Monday, January 1st, 2024", "short" gives
// "Mon, Jan 1st, 2024", anything else gives day/month/year with a 1-based month.
// TIME gives zero-padded HH:MM in the timestamp's own offset.
func SubstituteTokens(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		payload := tokenPattern.FindStringSubmatch(match)[1]
		if out, ok := renderToken(payload); ok {
			return out
		}
		return match
	})
}

func renderToken(payload string) (string, bool) {
	p := strings.TrimSpace(payload)
	switch {
	case strings.HasPrefix(p, "DATE"):
		args, ok := tokenArgs(p[len("DATE"):])
		if !ok {
			return "", false
		}
		t, ok := parseISO(args[0])
		if !ok {
			return "", false
		}
		format := ""
		if len(args) > 1 {
			format = args[1]
		}
		return formatDate(t, format), true

	case strings.HasPrefix(p, "TIME"):
		args, ok := tokenArgs(p[len("TIME"):])
		if !ok {
			return "", false
		}
		t, ok := parseISO(args[0])
		if !ok {
			return "", false
		}
		return t.Format("15:04"), true

	default:
		return "", false
	}
}

// tokenArgs splits "(a, b)" into trimmed arguments. At least one argument is required.
func tokenArgs(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, false
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, false
	}
	args := strings.Split(inner, ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return args, true
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDate(t time.Time, format string) string {
	day := t.Day()
	switch strings.ToLower(format) {
	case "long":
		return fmt.Sprintf("%s, %s %d%s, %d", t.Weekday(), t.Month(), day, ordinalSuffix(day), t.Year())
	case "short":
		return fmt.Sprintf("%s, %s %d%s, %d", t.Weekday().String()[:3], t.Month().String()[:3], day, ordinalSuffix(day), t.Year())
	default:
		return fmt.Sprintf("%d/%d/%d", day, int(t.Month()), t.Year())
	}
}

func ordinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
