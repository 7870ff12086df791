package eventlog

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatLine renders a record as one log line:
//
//	2026-01-02T15:04:05Z  kind=started  trigger=tts-1  session=…  voice="Thomas"  locale=fr-FR  text="Bonjour"
func FormatLine(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  kind=%s  trigger=%s  session=%s", r.Time.Format(time.RFC3339), r.Kind, r.Trigger, r.SessionID)
	if r.Voice != "" {
		fmt.Fprintf(&b, "  voice=%q", r.Voice)
	}
	if r.Locale != "" {
		fmt.Fprintf(&b, "  locale=%s", r.Locale)
	}
	if r.Text != "" {
		fmt.Fprintf(&b, "  text=%q", r.Text)
	}
	if r.Err != "" {
		fmt.Fprintf(&b, "  error=%q", r.Err)
	}
	return b.String()
}

// ParseRecords parses log content in file order, skipping malformed lines.
func ParseRecords(content string) []Record {
	var records []Record
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		ts, ok := ExtractTimestamp(line)
		if !ok {
			continue
		}
		kind := extractField(line, "kind")
		if kind == "" {
			continue
		}
		records = append(records, Record{
			Time:      ts,
			Kind:      kind,
			Trigger:   extractField(line, "trigger"),
			SessionID: extractField(line, "session"),
			Voice:     extractQuotedField(line, "voice"),
			Locale:    extractField(line, "locale"),
			Text:      extractQuotedField(line, "text"),
			Err:       extractQuotedField(line, "error"),
		})
	}
	return records
}

// ExtractTimestamp parses the RFC3339 timestamp that starts a log line.
func ExtractTimestamp(line string) (time.Time, bool) {
	tsEnd := strings.Index(line, "  ")
	if tsEnd < 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, line[:tsEnd])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// extractField returns the value of an unquoted key=value field.
func extractField(line, key string) string {
	prefix := key + "="
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, prefix) {
			return field[len(prefix):]
		}
	}
	return ""
}

// extractQuotedField returns the unquoted value of key="...".
func extractQuotedField(line, key string) string {
	marker := "  " + key + "=\""
	idx := strings.Index(line, marker)
	if idx < 0 {
		return ""
	}
	return extractQuoted(line[idx+len(marker)-1:])
}

func extractQuoted(s string) string {
	if len(s) == 0 || s[0] != '"' {
		return ""
	}
	// Find closing quote (skip escaped quotes).
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++ // skip escaped character
			continue
		}
		if s[i] == '"' {
			text, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return ""
			}
			return text
		}
	}
	return ""
}
