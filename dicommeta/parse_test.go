package dicommeta

import (
	"bytes"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const explicitVRLittleEndian = "1.2.840.10008.1.2.1"

func newElement(t *testing.T, tg tag.Tag, data any) *dicom.Element {
	t.Helper()
	el, err := dicom.NewElement(tg, data)
	if err != nil {
		t.Fatalf("NewElement(%v): %v", tg, err)
	}
	return el
}

func privateElement(t *testing.T) *dicom.Element {
	t.Helper()
	v, err := dicom.NewValue([]string{"vendor secret"})
	if err != nil {
		t.Fatalf("NewValue: %v", err)
	}
	return &dicom.Element{
		Tag:                    tag.Tag{Group: 0x0009, Element: 0x1001},
		RawValueRepresentation: "LO",
		Value:                  v,
	}
}

// testDataset is ordered by tag so it can also be written as a Part 10 file.
func testDataset(t *testing.T) dicom.Dataset {
	t.Helper()
	return dicom.Dataset{Elements: []*dicom.Element{
		newElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		newElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5.6.7"}),
		newElement(t, tag.TransferSyntaxUID, []string{explicitVRLittleEndian}),
		newElement(t, tag.ImageType, []string{"ORIGINAL", "PRIMARY"}),
		newElement(t, tag.SOPInstanceUID, []string{"1.2.3.4.5.6.7"}),
		newElement(t, tag.StudyDate, []string{"20230115"}),
		newElement(t, tag.StudyTime, []string{"093045"}),
		privateElement(t),
		newElement(t, tag.PatientName, []string{"Doe^John"}),
		newElement(t, tag.SliceThickness, []string{"1.25"}),
		newElement(t, tag.Rows, []int{512}),
	}}
}

func TestStripPrivate(t *testing.T) {
	ds := testDataset(t)
	stripped := StripPrivate(ds)

	if len(stripped.Elements) != len(ds.Elements)-1 {
		t.Fatalf("expected one element removed, got %d of %d", len(stripped.Elements), len(ds.Elements))
	}
	for _, el := range stripped.Elements {
		if el.Tag.Group%2 == 1 {
			t.Fatalf("private tag %v survived", el.Tag)
		}
	}
}

func TestElementsAdaptsDecodedValues(t *testing.T) {
	els := Elements(StripPrivate(testDataset(t)))

	byKeyword := map[string]Element{}
	for _, el := range els {
		byKeyword[el.Keyword] = el
	}

	for _, kw := range []string{"TransferSyntaxUID", "MediaStorageSOPInstanceUID"} {
		if _, ok := byKeyword[kw]; ok {
			t.Fatalf("file meta element %s must not be part of the data set", kw)
		}
	}
	if el := byKeyword["PatientName"]; el.VR != "PN" || el.VM != 1 {
		t.Fatalf("PatientName adapted as %+v", el)
	}
	if el := byKeyword["Rows"]; el.VR != "US" || el.VM != 1 {
		t.Fatalf("Rows adapted as %+v", el)
	}
	if el := byKeyword["ImageType"]; el.VM != 2 {
		t.Fatalf("ImageType VM = %d, want 2", el.VM)
	}
}

func TestKeywordOfUsesDictionaryKeyword(t *testing.T) {
	tests := []struct {
		tag  tag.Tag
		want string
	}{
		{tag.PatientName, "PatientName"},
		{tag.StudyDate, "StudyDate"},
		{tag.SliceThickness, "SliceThickness"},
		{tag.Tag{Group: 0x0009, Element: 0x1001}, ""},
	}
	for _, tt := range tests {
		if got := keywordOf(tt.tag); got != tt.want {
			t.Errorf("keywordOf(%v) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestMultiplicity(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{nil, 0},
		{[]string{}, 0},
		{[]string{"A", "B", "C"}, 3},
		{[]int{1, 2}, 2},
		{[]float64{0.5}, 1},
		{[]byte{0x01, 0x02}, 1},
	}
	for _, tt := range tests {
		if got := multiplicity(tt.in); got != tt.want {
			t.Errorf("multiplicity(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestElementsUnknownTagHasNoKeyword(t *testing.T) {
	els := Elements(dicom.Dataset{Elements: []*dicom.Element{privateElement(t)}})

	if len(els) != 1 || els[0].Keyword != "" {
		t.Fatalf("expected one keyword-less element, got %+v", els)
	}
	if rec := Normalize(els); len(rec) != 0 {
		t.Fatalf("keyword-less element leaked into %v", rec)
	}
}

func TestExtractWrittenFile(t *testing.T) {
	var buf bytes.Buffer
	if err := dicom.Write(&buf, testDataset(t)); err != nil {
		t.Fatalf("dicom.Write: %v", err)
	}

	rec, err := Extract(buf.Bytes())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]any{
		"StudyDate":      "20230115",
		"StudyTime":      "093045",
		"StudyDateTime":  "2023-01-15T09:30:45",
		"PatientName":    "Doe^John",
		"SOPInstanceUID": "1.2.3.4.5.6.7",
		"SliceThickness": 1.25,
		"Rows":           512,
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("rec[%q] = %#v, want %#v", k, rec[k], v)
		}
	}
	if len(rec) != len(want) {
		t.Fatalf("record has unexpected keys: %v", rec)
	}
	for _, kw := range []string{"TransferSyntaxUID", "MediaStorageSOPClassUID", "ImageType"} {
		if _, ok := rec[kw]; ok {
			t.Fatalf("%s must not be published", kw)
		}
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	if _, err := Extract([]byte("definitely not a dicom file")); err == nil {
		t.Fatal("expected parse error for non-DICOM bytes")
	}
}
