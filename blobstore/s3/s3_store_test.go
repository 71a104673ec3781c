package s3

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/docdb/blobstore"
	"github.com/hupe1980/docdb/blobstore/blobstoretest"
	"github.com/stretchr/testify/require"
)

// TestStore_Bucket runs against the bucket named by S3_BUCKET using the
// default AWS credential chain.
func TestStore_Bucket(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("S3_BUCKET not set")
	}
	ctx := context.Background()

	blobstoretest.Run(t, func(t *testing.T) blobstore.Store {
		s, err := New(ctx, bucket, WithPrefix("docdb-test/"+uuid.NewString()+"/"))
		require.NoError(t, err)
		t.Cleanup(func() {
			names, err := s.List(ctx, "")
			if err != nil {
				return
			}
			for _, name := range names {
				_ = s.Delete(ctx, name)
			}
		})
		return s
	})
}
