package migration

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ObjectStore is the target-side blob storage at the granularity this
// engine needs: bucket reset and object put.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	// DeleteObjects removes every object under the prefix and returns how
	// many were deleted.
	DeleteObjects(ctx context.Context, prefix string) (int, error)
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// managedPrefixes are the corners of the bucket this engine owns; the
// reset never touches anything outside them.
var managedPrefixes = []string{"templates/", "documents/"}

// BlobMigrator copies binary objects from the legacy blob store into the
// target bucket. It is deliberately outside the relational transaction:
// copies performed before an abort stay in place (documented limitation,
// re-run the blob phase to converge).
type BlobMigrator struct {
	source SourceReader
	store  ObjectStore
	log    logrus.FieldLogger
}

func NewBlobMigrator(source SourceReader, store ObjectStore, log logrus.FieldLogger) *BlobMigrator {
	return &BlobMigrator{source: source, store: store, log: log}
}

// ResetBucket creates the bucket when absent and clears the managed
// prefixes so repeated runs converge to the same object set.
func (m *BlobMigrator) ResetBucket(ctx context.Context) error {
	if err := m.store.EnsureBucket(ctx); err != nil {
		return err
	}
	for _, prefix := range managedPrefixes {
		deleted, err := m.store.DeleteObjects(ctx, prefix)
		if err != nil {
			return err
		}
		if deleted > 0 {
			m.log.WithFields(logrus.Fields{"prefix": prefix, "objects": deleted}).Debug("cleared target objects")
		}
	}
	return nil
}

// Copy moves one object. A missing source object is not an error: legacy
// deployments routinely carry asset records whose binary was lost. The
// bool result reports whether anything was copied.
func (m *BlobMigrator) Copy(ctx context.Context, ref BlobReference) (bool, error) {
	data, found, err := m.source.FetchBlob(ctx, ref.SourceBucket, ref.SourceName)
	if err != nil {
		return false, &BlobCopyError{Key: ref.Key, Err: err}
	}
	if !found {
		m.log.WithFields(logrus.Fields{
			"group":  ref.OwnerGroup,
			"record": ref.OwnerID,
			"source": ref.SourceName,
		}).Warn("no binary content found in legacy store, skipping")
		return false, nil
	}
	if err := m.store.Put(ctx, ref.Key, ref.ContentType, data); err != nil {
		return false, &BlobCopyError{Key: ref.Key, Err: err}
	}
	return true, nil
}
