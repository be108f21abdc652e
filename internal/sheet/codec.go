package sheet

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

// Codec converts between worksheet rows and applications.
type Codec struct {
	// Now supplies the timestamp used for missing createdAt and updatedAt
	// cells. Defaults to time.Now.
	Now func() time.Time
	// Logger receives decode warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Decode parses one row. It reports false when every cell is empty. Missing
// cells take their zero value; missing timestamps take the current time.
// A malformed interviews cell decodes to an empty list and logs a warning.
func (c Codec) Decode(row []any, rowNumber int) (tracker.Application, bool) {
	if isEmptyRow(row) {
		return tracker.Application{}, false
	}

	d := &decoder{now: c.now(), logger: c.logger(), row: rowNumber}
	a := tracker.Application{Position: rowNumber}
	for i := range columns {
		var cell any
		if i < len(row) {
			cell = row[i]
		}
		columns[i].set(&a, cell, d)
	}
	return a, true
}

// Encode produces a full-width row for a. Booleans and the rating are written
// as native values; timestamps as UTC RFC 3339 with milliseconds.
func (c Codec) Encode(a tracker.Application) []any {
	row := make([]any, Width)
	for i := range columns {
		row[i] = columns[i].get(&a)
	}
	return row
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC().Truncate(time.Millisecond)
	}
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (c Codec) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func isEmptyRow(row []any) bool {
	for _, cell := range row {
		switch v := cell.(type) {
		case nil:
		case string:
			if strings.TrimSpace(v) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// decoder carries per-row state for lenient cell parsing.
type decoder struct {
	now    time.Time
	logger *slog.Logger
	row    int
}

func (d *decoder) text(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func (d *decoder) boolean(cell any) bool {
	switch v := cell.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

func (d *decoder) number(cell any) float64 {
	switch v := cell.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}

func (d *decoder) timestamp(cell any) time.Time {
	s := strings.TrimSpace(d.text(cell))
	if s == "" {
		return d.now
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		d.logger.Warn("sheet: unparseable timestamp, using current time",
			"row", d.row,
			"value", s,
		)
		return d.now
	}
	return t.UTC()
}

func (d *decoder) interviews(cell any) []tracker.Interview {
	s := strings.TrimSpace(d.text(cell))
	if s == "" {
		return []tracker.Interview{}
	}
	var out []tracker.Interview
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		d.logger.Warn("sheet: malformed interviews cell, treating as empty",
			"row", d.row,
			"error", err,
		)
		return []tracker.Interview{}
	}
	if out == nil {
		out = []tracker.Interview{}
	}
	return out
}

func encodeInterviews(ivs []tracker.Interview) string {
	if len(ivs) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ivs)
	if err != nil {
		return "[]"
	}
	return string(b)
}
