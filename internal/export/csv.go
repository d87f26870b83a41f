// Package export serializes row sets to delimited text for the download
// endpoints. Fields containing a separator, quote, or newline are quoted with
// doubled embedded quotes; everything else passes through bare, and there is
// no trailing newline after the last record.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bcs-dashboard/internal/models"
)

// ToCSV renders a header row plus one line per record.
func ToCSV(headers []string, rows [][]any) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(headers, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeField(field))
		}
	}
	return b.String()
}

func escapeField(v any) string {
	if v == nil {
		return ""
	}
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case int:
		s = strconv.Itoa(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		s = val.UTC().Format(time.RFC3339)
	default:
		s = fmt.Sprint(val)
	}
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

var eventHeaders = []string{"tenant_id", "timestamp", "channel", "stage", "status", "duration_ms", "error_type", "csat", "aht_ms"}

// EventsToCSV serializes an event set in the fixed column order of the
// dashboard's raw-events download.
func EventsToCSV(rows []models.EventRow) string {
	records := make([][]any, len(rows))
	for i, row := range rows {
		records[i] = []any{
			row.TenantID,
			row.Timestamp,
			string(row.Channel),
			string(row.Stage),
			string(row.Status),
			row.DurationMs,
			row.ErrorType,
			row.CSAT,
			row.AHTMs,
		}
	}
	return ToCSV(eventHeaders, records)
}
