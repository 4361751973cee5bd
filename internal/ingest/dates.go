package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InferYearDate builds a YYYY-MM-DD date from an in-line MM/DD token and a
// year taken from statement metadata. Statements span year boundaries, so a
// resulting date that falls after "today" is rolled back one year rather than
// accepted as a future transaction.
//
// Isolated here so the rollback behavior is testable against boundary dates
// (Dec 31 / Jan 1).
func InferYearDate(monthDay string, year int, today time.Time) (string, bool) {
	parts := strings.Split(monthDay, "/")
	if len(parts) != 2 {
		return "", false
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		d = time.Date(year-1, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	return d.Format("2006-01-02"), true
}

// parseShortDate converts a two-digit-year date like "12/08/22" to
// "2022-12-08". All statements in scope postdate 2000.
func parseShortDate(s string) (string, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return "", false
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	yy, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	return fmt.Sprintf("20%02d-%02d-%02d", yy, month, day), true
}

// normalizeSlashDate converts "2024/5/7" (Cathay export format) to
// "2024-05-07". Dates already in ISO form pass through unchanged.
func normalizeSlashDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, "/") {
		return s, true
	}
	t, err := time.Parse("2006/1/2", s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
