package dicommeta

import (
	"bytes"
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// fileMetaGroup holds the Part 10 file meta information, which describes the
// file rather than the imaged object.
const fileMetaGroup = tag.MetadataGroup

// Parse decodes a DICOM Part 10 file held in memory. Pixel data is skipped.
func Parse(data []byte) (dicom.Dataset, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return dicom.Dataset{}, fmt.Errorf("dicom.Parse: %w", err)
	}
	return ds, nil
}

// StripPrivate returns a copy of ds without private (odd group) elements.
func StripPrivate(ds dicom.Dataset) dicom.Dataset {
	kept := make([]*dicom.Element, 0, len(ds.Elements))
	for _, el := range ds.Elements {
		if el == nil || isPrivate(el.Tag) {
			continue
		}
		kept = append(kept, el)
	}
	return dicom.Dataset{Elements: kept}
}

func isPrivate(t tag.Tag) bool {
	return t.Group%2 == 1
}

// Elements adapts decoded elements to the normalizer's view. File meta
// elements are left out; tags missing from the dictionary get an empty
// keyword.
func Elements(ds dicom.Dataset) []Element {
	out := make([]Element, 0, len(ds.Elements))
	for _, el := range ds.Elements {
		if el == nil || el.Tag.Group == fileMetaGroup {
			continue
		}

		var raw any
		if el.Value != nil {
			raw = el.Value.GetValue()
		}
		out = append(out, Element{
			Keyword: keywordOf(el.Tag),
			VR:      el.RawValueRepresentation,
			VM:      multiplicity(raw),
			Value:   raw,
		})
	}
	return out
}

func keywordOf(t tag.Tag) string {
	info, err := tag.Find(t)
	if err != nil {
		return ""
	}
	return info.Keyword
}

// multiplicity counts decoded values. Binary payloads and sequences count as
// a single value.
func multiplicity(v any) int {
	switch vals := v.(type) {
	case nil:
		return 0
	case []string:
		return len(vals)
	case []int:
		return len(vals)
	case []float64:
		return len(vals)
	default:
		return 1
	}
}

// Extract runs the whole chain for one file: decode, drop private tags,
// normalize.
func Extract(data []byte) (Record, error) {
	ds, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Normalize(Elements(StripPrivate(ds))), nil
}
