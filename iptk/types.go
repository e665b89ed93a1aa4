package iptk

// ChangeEntry is one row of the dataset change log.
type ChangeEntry struct {
	DatasetID string `json:"dataset_id"`
}

// ChangeRange locates a page within the change log. End is the cursor for
// the next page; Max is the end of the log at request time.
type ChangeRange struct {
	End int `json:"end"`
	Max int `json:"max"`
}

// ChangePage is the response of GET /v3/logs/dataset_changes.
type ChangePage struct {
	Entries []ChangeEntry `json:"entries"`
	Range   ChangeRange   `json:"range"`
}

// CaughtUp reports whether the page reached the end of the log.
func (p *ChangePage) CaughtUp() bool {
	return p.Range.End == p.Range.Max
}

// DatasetMeta is the response of GET /v3/datasets/<id>/meta.
type DatasetMeta struct {
	Metadatasets []string `json:"metadatasets"`
}

// Has reports whether metadata for schemaID was already published.
func (m *DatasetMeta) Has(schemaID string) bool {
	for _, id := range m.Metadatasets {
		if id == schemaID {
			return true
		}
	}
	return false
}

// DatasetFiles is the response of GET /v3/datasets/<id>/data.
type DatasetFiles struct {
	Files []string `json:"files"`
}
