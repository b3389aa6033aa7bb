package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

var reservedKeys = map[string]bool{"ts": true, "time": true, "level": true, "msg": true}

// FormatRecord renders one JSON log record as "15:04:05 LEVEL msg k=v ...".
// Timestamps are read from "ts" or "time".
// Lines that are not JSON objects are returned unchanged.
func FormatRecord(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}

	var b strings.Builder
	ts, ok := record["ts"].(string)
	if !ok {
		ts, ok = record["time"].(string)
	}
	if ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ts = parsed.Local().Format(time.TimeOnly)
		}
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	if level, ok := record["level"].(string); ok {
		fmt.Fprintf(&b, "%-5s ", strings.ToUpper(level))
	}
	if msg, ok := record["msg"].(string); ok {
		b.WriteString(msg)
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		if !reservedKeys[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, formatValue(record[key]))
	}
	return b.String()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		if strings.ContainsAny(v, " \t") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
