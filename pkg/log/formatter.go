package log

import (
	"encoding/json"
	"strings"
	"time"
)

// TextFormatter renders entries as "ts LEVEL message key=value ...".
type TextFormatter struct {
	// TimestampFormat defaults to time.RFC3339Nano truncated to millis.
	TimestampFormat string
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) []byte {
	layout := f.TimestampFormat
	if layout == "" {
		layout = "2006-01-02T15:04:05.000Z07:00"
	}
	var b strings.Builder
	b.WriteString(entry.Timestamp.Format(layout))
	b.WriteByte(' ')
	b.WriteString(entry.Level.String())
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	for _, fld := range entry.Fields {
		b.WriteByte(' ')
		b.WriteString(fld.Key)
		b.WriteByte('=')
		v := formatValue(fld.Value)
		if strings.ContainsAny(v, " \t\"") {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(v, `"`, `\"`))
			b.WriteByte('"')
		} else {
			b.WriteString(v)
		}
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// JSONFormatter renders entries as single-line JSON objects.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) []byte {
	m := make(map[string]any, len(entry.Fields)+3)
	m["ts"] = entry.Timestamp.UTC().Format(time.RFC3339Nano)
	m["level"] = strings.ToLower(entry.Level.String())
	m["msg"] = entry.Message
	for _, fld := range entry.Fields {
		m[fld.Key] = fld.Value
	}
	b, err := json.Marshal(m)
	if err != nil {
		b = []byte(`{"level":"error","msg":"log: marshal failure"}`)
	}
	return append(b, '\n')
}
