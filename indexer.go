package main

import (
	"context"
	"fmt"

	"dicom-indexer/dicommeta"
	"dicom-indexer/iptk"
)

// SchemaID identifies the metadata sets written by this indexer.
const SchemaID = "32bdac29d951d9def51e3cee10c4f0e582f2a962"

// Outcome is the result of one dataset attempt.
type Outcome string

const (
	OutcomeUpdated         Outcome = "updated"
	OutcomeSkippedExisting Outcome = "skipped_existing"
	OutcomeSkippedNoDicom  Outcome = "skipped_no_dicom"
	OutcomeSkippedSeen     Outcome = "skipped_seen"
	OutcomeFailed          Outcome = "failed"
)

// DatasetAPI is the part of the IPTK API needed to index one dataset.
type DatasetAPI interface {
	DatasetMeta(ctx context.Context, datasetID string) (*iptk.DatasetMeta, error)
	DatasetFiles(ctx context.Context, datasetID string) (*iptk.DatasetFiles, error)
	DatasetFile(ctx context.Context, datasetID, name string) ([]byte, error)
	PublishMeta(ctx context.Context, datasetID, schemaID string, doc any) error
}

// Indexer extracts and publishes the DICOM metadata of single datasets.
type Indexer struct {
	API      DatasetAPI
	SchemaID string
	// Extract turns the bytes of one DICOM file into a record.
	Extract func(data []byte) (dicommeta.Record, error)
}

// NewIndexer returns an Indexer that publishes under SchemaID.
func NewIndexer(api DatasetAPI) *Indexer {
	return &Indexer{
		API:      api,
		SchemaID: SchemaID,
		Extract:  dicommeta.Extract,
	}
}

// HandleDataset runs the full flow for one dataset:
// - skip it if our metadata set already exists
// - pick the first .dcm file of the listing (none: skip)
// - download and normalize it
// - publish the record.
//
// Any error yields OutcomeFailed; nothing is retried here.
func (ix *Indexer) HandleDataset(ctx context.Context, datasetID string) (Outcome, error) {
	meta, err := ix.API.DatasetMeta(ctx, datasetID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("existence check: %w", err)
	}
	if meta.Has(ix.SchemaID) {
		return OutcomeSkippedExisting, nil
	}

	files, err := ix.API.DatasetFiles(ctx, datasetID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("list files: %w", err)
	}
	name, ok := dicommeta.SelectRepresentative(files.Files)
	if !ok {
		return OutcomeSkippedNoDicom, nil
	}

	data, err := ix.API.DatasetFile(ctx, datasetID, name)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("download %s: %w", name, err)
	}

	rec, err := ix.Extract(data)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("extract %s: %w", name, err)
	}

	if err := ix.API.PublishMeta(ctx, datasetID, ix.SchemaID, rec); err != nil {
		return OutcomeFailed, fmt.Errorf("publish: %w", err)
	}
	return OutcomeUpdated, nil
}
