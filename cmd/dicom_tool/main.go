package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"dicom-indexer/dicommeta"
	"dicom-indexer/iptk"
)

/*

 go run ./cmd/dicom_tool \
 -file=testdata/CT-MONO2-16-ankle.dcm

 go run ./cmd/dicom_tool \
 -api=https://iptk.example.org \
 -dataset=4a2b0c9f0e5d6d1c2b3a49586776655443322110

*/

func main() {
	var (
		filePath  = flag.String("file", "", "local DICOM file to normalize")
		datasetID = flag.String("dataset", "", "dataset id to inspect via the API")
		apiURL    = flag.String("api", envOr("API_ENDPOINT", "http://localhost"), "IPTK API base URL")
		timeout   = flag.Duration("timeout", time.Minute, "HTTP client timeout")
	)
	flag.Parse()

	if (*filePath == "") == (*datasetID == "") {
		log.Fatal("exactly one of -file or -dataset is required")
	}

	var (
		rec dicommeta.Record
		err error
	)
	if *filePath != "" {
		rec, err = fromFile(*filePath)
	} else {
		rec, err = fromDataset(context.Background(), iptk.NewClient(*apiURL, *timeout), *datasetID)
	}
	if err != nil {
		log.Fatal(err)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		log.Fatalf("MarshalIndent: %v", err)
	}
	fmt.Println(string(out))
}

func fromFile(path string) (dicommeta.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return dicommeta.Extract(data)
}

// fromDataset mirrors the indexer's selection and extraction without
// publishing anything.
func fromDataset(ctx context.Context, api *iptk.Client, datasetID string) (dicommeta.Record, error) {
	files, err := api.DatasetFiles(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("DatasetFiles: %w", err)
	}
	name, ok := dicommeta.SelectRepresentative(files.Files)
	if !ok {
		return nil, fmt.Errorf("dataset %s has no .dcm file", datasetID)
	}
	log.Printf("using %s", name)

	data, err := api.DatasetFile(ctx, datasetID, name)
	if err != nil {
		return nil, fmt.Errorf("DatasetFile(%s): %w", name, err)
	}
	return dicommeta.Extract(data)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
