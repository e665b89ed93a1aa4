package dedup

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// seenDataset is the document stored per admitted dataset.
type seenDataset struct {
	DatasetID  string    `firestore:"dataset_id"`
	AdmittedAt time.Time `firestore:"admitted_at"`
}

// Firestore keeps one document per admitted dataset, keyed by dataset id.
// Document creation fails with AlreadyExists for everyone but the first
// writer, so admission is atomic across instances.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore creates a Firestore client for projectID.
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Firestore{client: client, collection: SetName}, nil
}

var _ Tracker = (*Firestore)(nil)

func (f *Firestore) doc(id string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(id)
}

func (f *Firestore) Seen(ctx context.Context, id string) (bool, error) {
	_, err := f.doc(id).Get(ctx)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("get seen dataset (%s): %w", id, err)
	}
	return true, nil
}

func (f *Firestore) MarkSeen(ctx context.Context, id string) error {
	_, err := f.Admit(ctx, id)
	return err
}

func (f *Firestore) Admit(ctx context.Context, id string) (bool, error) {
	_, err := f.doc(id).Create(ctx, &seenDataset{DatasetID: id, AdmittedAt: time.Now().UTC()})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
			return false, nil
		}
		return false, fmt.Errorf("create seen dataset (%s): %w", id, err)
	}
	return true, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
