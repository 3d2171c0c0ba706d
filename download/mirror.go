package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
)

// Mirror copies downloaded files to a bucket, keyed by their path below Root.
type Mirror struct {
	Bucket *blob.Bucket
	Root   string
}

// OpenMirror opens the bucket at bucketURL (file://, s3://, gs://, mem://).
// Drivers are linked in by the binary.
func OpenMirror(ctx context.Context, bucketURL, root string) (*Mirror, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open mirror bucket %s: %w", bucketURL, err)
	}
	return &Mirror{Bucket: bucket, Root: root}, nil
}

// Key is the object key for a local path.
func (m *Mirror) Key(path string) (string, error) {
	rel, err := filepath.Rel(m.Root, path)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s is outside %s", path, m.Root)
	}
	return filepath.ToSlash(rel), nil
}

// Upload copies path to the bucket unless its key is already there.
// It reports whether an upload happened.
func (m *Mirror) Upload(ctx context.Context, path string) (bool, error) {
	key, err := m.Key(path)
	if err != nil {
		return false, err
	}
	exists, err := m.Bucket.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	if exists {
		return false, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer src.Close()

	w, err := m.Bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return false, fmt.Errorf("upload %s: %w", key, err)
	}
	if _, err = io.Copy(w, src); err != nil {
		w.Close()
		return false, fmt.Errorf("upload %s: %w", key, err)
	}
	if err = w.Close(); err != nil {
		return false, fmt.Errorf("upload %s: %w", key, err)
	}
	return true, nil
}

// Close releases the bucket.
func (m *Mirror) Close() error {
	return m.Bucket.Close()
}
