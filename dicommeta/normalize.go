package dicommeta

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value representations copied into the record.
const (
	vrPersonName      = "PN"
	vrUnsignedShort   = "US"
	vrDecimalString   = "DS"
	vrUniqueID        = "UI"
	vrCodeString      = "CS"
	vrIntegerString   = "IS"
	vrLongString      = "LO"
	vrShortString     = "SH"
	vrTime            = "TM"
	vrDate            = "DA"
	dateKeywordSuffix = "Date"
)

var retainedVRs = map[string]bool{
	vrPersonName:    true,
	vrUnsignedShort: true,
	vrDecimalString: true,
	vrUniqueID:      true,
	vrCodeString:    true,
	vrIntegerString: true,
	vrLongString:    true,
	vrShortString:   true,
	vrTime:          true,
	vrDate:          true,
}

// Normalize maps a data set to a flat record.
//
// Private elements must be removed beforehand (see StripPrivate). Elements
// without a keyword and elements holding more than one value contribute
// nothing. Every DA element with a keyword "<Prefix>Date" also yields a
// "<Prefix>DateTime" key when it can be paired with "<Prefix>Time" (or the
// midnight default); a malformed pair just leaves that key out.
func Normalize(elements []Element) Record {
	byKeyword := make(map[string]Element, len(elements))
	for _, el := range elements {
		if el.Keyword == "" {
			continue
		}
		if _, dup := byKeyword[el.Keyword]; !dup {
			byKeyword[el.Keyword] = el
		}
	}

	rec := make(Record)
	for _, el := range elements {
		if el.Keyword == "" || el.VM > 1 {
			continue
		}

		if el.VR == vrDate {
			prefix := datePrefix(el.Keyword)
			tm := defaultTime
			if timeEl, ok := byKeyword[prefix+"Time"]; ok {
				tm = textOf(timeEl)
			}
			if iso, ok := CombineDateTime(textOf(el), tm); ok {
				rec[prefix+"DateTime"] = iso
			}
		}

		if retainedVRs[el.VR] {
			rec[el.Keyword] = scalarOf(el)
		}
	}
	return rec
}

// datePrefix drops the four-character "Date" suffix position from a keyword.
// Keywords shorter than that give an empty prefix.
func datePrefix(keyword string) string {
	if len(keyword) < len(dateKeywordSuffix) {
		return ""
	}
	return keyword[:len(keyword)-len(dateKeywordSuffix)]
}

// textOf renders an element value as the DICOM string it was decoded from.
// Multiple values are joined with the standard backslash delimiter.
func textOf(el Element) string {
	switch v := el.Value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = strings.TrimSpace(s)
		}
		return strings.Join(parts, `\`)
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, `\`)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, `\`)
	default:
		return fmt.Sprint(v)
	}
}

// scalarOf converts a single-valued element into its transport value.
func scalarOf(el Element) any {
	switch el.VR {
	case vrUnsignedShort:
		switch v := el.Value.(type) {
		case []int:
			if len(v) == 0 {
				return nil
			}
			return v[0]
		case int:
			return v
		}
		if s := textOf(el); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
			return s
		}
		return nil

	case vrIntegerString:
		s := textOf(el)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		return s

	case vrDecimalString:
		s := textOf(el)
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
		return s
	}

	// PN and the remaining text representations travel as strings.
	return textOf(el)
}
