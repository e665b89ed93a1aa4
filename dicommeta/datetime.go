package dicommeta

import (
	"strconv"
	"strings"
	"time"
)

// defaultTime is used when a date has no matching time attribute.
const defaultTime = "000000.0"

// CombineDateTime joins a DA value and a TM value into an ISO-8601 timestamp.
//
// The pair is read as "YYYYMMDD HHMMSS.ffffff" with a fraction of one to six
// digits. A time without a fraction gets ".0" appended first. The result has
// no fractional part when the microseconds are zero, and six digits otherwise.
// ok is false when either half is malformed.
func CombineDateTime(date, tm string) (iso string, ok bool) {
	if !strings.Contains(tm, ".") {
		tm += ".0"
	}
	if len(date) != 8 || !allDigits(date) {
		return "", false
	}

	clock, frac, _ := strings.Cut(tm, ".")
	if len(clock) != 6 || !allDigits(clock) {
		return "", false
	}
	if len(frac) == 0 || len(frac) > 6 || !allDigits(frac) {
		return "", false
	}

	year, _ := strconv.Atoi(date[0:4])
	month, _ := strconv.Atoi(date[4:6])
	day, _ := strconv.Atoi(date[6:8])
	hour, _ := strconv.Atoi(clock[0:2])
	minute, _ := strconv.Atoi(clock[2:4])
	second, _ := strconv.Atoi(clock[4:6])
	micro, _ := strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))

	if year < 1 || month < 1 || month > 12 || day < 1 {
		return "", false
	}
	if hour > 23 || minute > 59 || second > 59 {
		return "", false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, micro*1000, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject those.
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}

	if micro == 0 {
		return t.Format("2006-01-02T15:04:05"), true
	}
	return t.Format("2006-01-02T15:04:05.000000"), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
