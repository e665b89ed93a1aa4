package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dicom-indexer/dicommeta"
	"dicom-indexer/iptk"
)

// fakeAPI is an in-process stand-in for the IPTK dataset endpoints.
type fakeAPI struct {
	mu        sync.Mutex
	metas     map[string][]string
	files     map[string][]string
	content   map[string][]byte
	badMeta   map[string]bool
	published map[string]map[string]any
	requests  []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		metas:     map[string][]string{},
		files:     map[string][]string{},
		content:   map[string][]byte{},
		badMeta:   map[string]bool{},
		published: map[string]map[string]any{},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/v3/datasets/"), "/", 3)
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	switch {
	case r.Method == http.MethodGet && parts[1] == "meta" && len(parts) == 2:
		if f.badMeta[id] {
			_, _ = io.WriteString(w, "Internal Server Error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"metadatasets": append([]string{}, f.metas[id]...)})
	case r.Method == http.MethodGet && parts[1] == "data" && len(parts) == 2:
		_ = json.NewEncoder(w).Encode(map[string]any{"files": append([]string{}, f.files[id]...)})
	case r.Method == http.MethodGet && parts[1] == "data":
		data, ok := f.content[id+"/"+parts[2]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	case r.Method == http.MethodPost && parts[1] == "meta" && len(parts) == 3:
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.published[id] = doc
		f.metas[id] = append(f.metas[id], parts[2])
		w.WriteHeader(http.StatusCreated)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) requested(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

func newTestIndexer(t *testing.T, api *fakeAPI) *Indexer {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	ix := NewIndexer(iptk.NewClient(srv.URL, 5*time.Second))
	ix.Extract = func(data []byte) (dicommeta.Record, error) {
		if !bytes.Equal(data, []byte("DICM-BYTES")) {
			return nil, errors.New("unparseable DICOM")
		}
		return dicommeta.Record{"Modality": "CT", "StudyDateTime": "2023-01-15T09:30:45"}, nil
	}
	return ix
}

func TestHandleDatasetPublishesRecord(t *testing.T) {
	api := newFakeAPI()
	api.files["ds-1"] = []string{"notes.txt", "img1.dcm", "img2.dcm"}
	api.content["ds-1/img1.dcm"] = []byte("DICM-BYTES")
	ix := newTestIndexer(t, api)

	outcome, err := ix.HandleDataset(context.Background(), "ds-1")
	if err != nil {
		t.Fatalf("HandleDataset: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeUpdated)
	}
	doc := api.published["ds-1"]
	if doc["Modality"] != "CT" || doc["StudyDateTime"] != "2023-01-15T09:30:45" {
		t.Fatalf("published %v", doc)
	}
	if !api.requested("POST /v3/datasets/ds-1/meta/" + SchemaID) {
		t.Fatalf("record not posted under schema id; requests: %v", api.requests)
	}
	if api.requested("GET /v3/datasets/ds-1/data/img2.dcm") {
		t.Fatal("only the representative file may be downloaded")
	}
}

func TestHandleDatasetSkipsExisting(t *testing.T) {
	api := newFakeAPI()
	api.metas["ds-1"] = []string{"other-schema", SchemaID}
	api.files["ds-1"] = []string{"img.dcm"}
	ix := newTestIndexer(t, api)

	outcome, err := ix.HandleDataset(context.Background(), "ds-1")
	if err != nil {
		t.Fatalf("HandleDataset: %v", err)
	}
	if outcome != OutcomeSkippedExisting {
		t.Fatalf("outcome = %s", outcome)
	}
	if api.requested("GET /v3/datasets/ds-1/data") {
		t.Fatal("listing must not be fetched for an indexed dataset")
	}
}

func TestHandleDatasetWithoutDicomFiles(t *testing.T) {
	api := newFakeAPI()
	api.files["ds-1"] = []string{"readme.txt", "scan.DCM"}
	ix := newTestIndexer(t, api)

	outcome, err := ix.HandleDataset(context.Background(), "ds-1")
	if err != nil {
		t.Fatalf("HandleDataset: %v", err)
	}
	if outcome != OutcomeSkippedNoDicom {
		t.Fatalf("outcome = %s", outcome)
	}
	if _, ok := api.published["ds-1"]; ok {
		t.Fatal("nothing should be published")
	}
}

func TestHandleDatasetFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(api *fakeAPI)
	}{
		{"undecodable existence check", func(api *fakeAPI) {
			api.badMeta["ds-1"] = true
		}},
		{"missing file", func(api *fakeAPI) {
			api.files["ds-1"] = []string{"gone.dcm"}
		}},
		{"unparseable file", func(api *fakeAPI) {
			api.files["ds-1"] = []string{"bad.dcm"}
			api.content["ds-1/bad.dcm"] = []byte("garbage")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			tt.setup(api)
			ix := newTestIndexer(t, api)

			outcome, err := ix.HandleDataset(context.Background(), "ds-1")
			if err == nil {
				t.Fatal("expected error")
			}
			if outcome != OutcomeFailed {
				t.Fatalf("outcome = %s, want %s", outcome, OutcomeFailed)
			}
			if _, ok := api.published["ds-1"]; ok {
				t.Fatal("failed dataset must not be published")
			}
		})
	}
}

func TestHandleDatasetRealExtractorRejectsGarbage(t *testing.T) {
	api := newFakeAPI()
	api.files["ds-1"] = []string{"bad.dcm"}
	api.content["ds-1/bad.dcm"] = []byte("not dicom at all")
	ix := newTestIndexer(t, api)
	ix.Extract = dicommeta.Extract

	outcome, err := ix.HandleDataset(context.Background(), "ds-1")
	if err == nil || outcome != OutcomeFailed {
		t.Fatalf("HandleDataset = (%s, %v), want failure", outcome, err)
	}
}
