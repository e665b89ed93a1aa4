// Package dicommeta extracts a flat, JSON-friendly subset of DICOM attributes
// from a single DICOM file.
package dicommeta

// Element is one decoded attribute of a DICOM data set.
type Element struct {
	// Keyword is the dictionary keyword, e.g. "StudyDate". Empty for private
	// or unknown tags.
	Keyword string
	// VR is the two-letter value representation code ("DA", "PN", ...).
	VR string
	// VM is the number of values encoded in the element.
	VM int
	// Value is the decoded value: []string, []int, []float64 or anything the
	// decoder produced for binary and sequence data.
	Value any
}

// Record is the normalized output published for one dataset: attribute
// keyword to scalar value.
type Record map[string]any
