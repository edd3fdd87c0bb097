package core

import (
	"strings"
	"time"
)

const isoDateLayout = "2006-01-02"

// ConvertDate rewrites a DD/MM/YYYY date as YYYY-MM-DD.
//
// The raw value must split on "/" into exactly three non-empty parts. With
// strict set the result must also be a real calendar date; without it the
// parts are reordered as given, so "32/13/2024" becomes "2024-13-32".
func ConvertDate(raw string, strict bool) (string, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return "", InvalidDateFormat(raw)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return "", InvalidDateFormat(raw)
		}
	}
	day, month, year := parts[0], parts[1], parts[2]

	if !strict {
		return year + "-" + month + "-" + day, nil
	}

	if len(year) != 4 {
		return "", InvalidDateFormat(raw)
	}
	iso := year + "-" + pad2(month) + "-" + pad2(day)
	t, err := time.Parse(isoDateLayout, iso)
	if err != nil {
		return "", InvalidDateFormat(raw)
	}
	return t.Format(isoDateLayout), nil
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
