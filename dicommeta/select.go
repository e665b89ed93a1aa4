package dicommeta

import "strings"

// dicomSuffix marks files worth indexing. Matching is case-sensitive.
const dicomSuffix = ".dcm"

// SelectRepresentative picks the file whose metadata stands for the whole
// dataset: the first ".dcm" name in listing order. Other DICOM files in the
// dataset are not indexed.
func SelectRepresentative(names []string) (string, bool) {
	for _, name := range names {
		if strings.HasSuffix(name, dicomSuffix) {
			return name, true
		}
	}
	return "", false
}
