package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Checked first; anything else goes through dateparse.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// ConvertDateToTimestamp parses a caller-supplied date into whole seconds
// since the epoch, rounding down. Strings without a zone are read as UTC.
// Human forms such as "June 1, 2030" or "06/01/2030" (month first) are
// accepted too.
func ConvertDateToTimestamp(date string) (int64, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, date, time.UTC)
		if err == nil {
			return t.Unix(), nil
		}
	}
	t, err := dateparse.ParseIn(date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("unrecognised date %q: %w", date, err)
	}
	return t.Unix(), nil
}
