package log

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// JSONFormatter formats log entries as JSON.
type JSONFormatter struct {
	TimestampFormat string
}

// Format formats the entry as JSON.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Fields)+3)

	timestampFormat := time.RFC3339
	if f.TimestampFormat != "" {
		timestampFormat = f.TimestampFormat
	}

	for k, v := range entry.Fields {
		data[k] = v
	}
	// Standard keys win over fields with the same name.
	data["timestamp"] = entry.Timestamp.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message

	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// TextFormatter formats log entries as human-readable text.
type TextFormatter struct {
	TimestampFormat  string
	DisableColors    bool
	DisableTimestamp bool
}

// NewTextFormatter creates a new TextFormatter with sensible defaults.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		TimestampFormat: "15:04:05.000",
	}
}

var (
	levelColors = map[Level]*color.Color{
		DebugLevel: color.New(color.FgBlue),
		InfoLevel:  color.New(color.FgGreen),
		WarnLevel:  color.New(color.FgYellow),
		ErrorLevel: color.New(color.FgRed),
	}
	fieldKeyColor = color.New(color.FgCyan)
	dimColor      = color.New(color.FgHiBlack)
)

var levelShort = map[Level]string{
	DebugLevel: "DBG",
	InfoLevel:  "INF",
	WarnLevel:  "WRN",
	ErrorLevel: "ERR",
}

// Format formats the entry as text. Fields are printed in key order so
// output is stable between runs.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b strings.Builder

	if !f.DisableTimestamp {
		timestampFormat := f.TimestampFormat
		if timestampFormat == "" {
			timestampFormat = "2006-01-02T15:04:05.000"
		}
		ts := entry.Timestamp.Format(timestampFormat)
		if !f.DisableColors {
			ts = dimColor.Sprint(ts)
		}
		b.WriteString(ts)
		b.WriteByte(' ')
	}

	level, ok := levelShort[entry.Level]
	if !ok {
		level = entry.Level.String()
	}
	if c, ok := levelColors[entry.Level]; ok && !f.DisableColors {
		level = c.Sprint(level)
	}
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if !f.DisableColors {
			key = fieldKeyColor.Sprint(k)
		}
		fmt.Fprintf(&b, " %s=%v", key, entry.Fields[k])
	}
	b.WriteByte('\n')

	return []byte(b.String()), nil
}
