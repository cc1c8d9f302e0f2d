package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

// OpenBucket returns a blob.Bucket for the given reference.
// The reference should be of the form:
//
//	gs://<bucketname> or <bucketname>
//	s3://<bucketname>[/<prefix>]
//	vast://<endpoint>/<bucketname>
//	file:///<directory>
//	mem://
func OpenBucket(ctx context.Context, ref string) (bucket *blob.Bucket, err error) {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		// Requires AWS credentials that gocloud can find and the AWS_REGION
		// environment variable.
		pathpart := strings.TrimPrefix(ref, "s3://")
		parts := strings.SplitN(pathpart, "/", 2)
		bucket, err = blob.OpenBucket(ctx, "s3://"+parts[0])
		if err != nil {
			dvid.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if len(parts) == 2 && parts[1] != "" {
			prefix := strings.TrimSuffix(parts[1], "/") + "/"
			bucket = blob.PrefixedBucket(bucket, prefix)
		}

	case strings.HasPrefix(ref, "vast://"):
		// VAST S3-compatible storage of form "vast://<endpoint>/<bucket>".
		// AWS_REGION must be set but is ignored, and AWS_SHARED_CREDENTIALS_FILE
		// must point to the access key file.
		vref := strings.TrimPrefix(ref, "vast://")
		refParts := strings.SplitN(vref, "/", 2)
		if len(refParts) != 2 {
			return nil, fmt.Errorf("vast ref must be of form 'vast://<endpoint>/<bucket>'")
		}
		url := fmt.Sprintf("s3://%s?endpoint=%s&s3ForcePathStyle=true", refParts[1], refParts[0])
		bucket, err = blob.OpenBucket(ctx, url)
		if err != nil {
			dvid.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}

	case strings.HasPrefix(ref, "file://"), strings.HasPrefix(ref, "mem://"):
		bucket, err = blob.OpenBucket(ctx, ref)
		if err != nil {
			dvid.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}

	default:
		// Google Cloud Storage with application default credentials.
		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, err
		}
		client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
		if err != nil {
			return nil, err
		}
		bucket, err = gcsblob.OpenBucket(ctx, client, strings.TrimPrefix(ref, "gs://"), nil)
		if err != nil {
			dvid.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
	}
	return bucket, nil
}

// BlobSource reads a container object with ranged reads, so opening a file and
// fetching one block touches only the header, the directory, and that block.
type BlobSource struct {
	ctx    context.Context
	bucket *blob.Bucket
	key    string
	size   int64
}

// NewBlobSource returns a Source for an object.  The bucket is not closed by the
// source.
func NewBlobSource(ctx context.Context, bucket *blob.Bucket, key string) (*BlobSource, error) {
	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, dvid.NewError(dvid.NotFound, "open", "no object %q", key)
		}
		return nil, dvid.IOErr("open", err)
	}
	return &BlobSource{ctx: ctx, bucket: bucket, key: key, size: attrs.Size}, nil
}

// OpenBlob opens a finalized container stored as an object.
func OpenBlob(ctx context.Context, bucket *blob.Bucket, key string) (*File, error) {
	src, err := NewBlobSource(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return Open(src)
}

func (s *BlobSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	length := int64(len(p))
	if off+length > s.size {
		length = s.size - off
	}
	if length == 0 {
		return 0, nil
	}
	timedLog := dvid.NewTimeLog()
	r, err := s.bucket.NewRangeReader(s.ctx, s.key, off, length, nil)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	n, err := io.ReadFull(r, p[:length])
	if err != nil {
		return n, err
	}
	timedLog.Debugf("Range read of object %q, offset %d, size %d", s.key, off, length)
	if int(length) < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the object size.
func (s *BlobSource) Size() int64 {
	return s.size
}

func (s *BlobSource) Name() string {
	return "object " + s.key
}

func (s *BlobSource) Close() error {
	return nil
}

// BlobTarget stages a container in memory and uploads it on Close once it has
// been finalized.  An unfinalized container is never uploaded.
type BlobTarget struct {
	billy.File
	ctx       context.Context
	bucket    *blob.Bucket
	key       string
	committed bool
}

// NewBlobTarget returns a Target that uploads to key.  The bucket is not closed
// by the target.
func NewBlobTarget(ctx context.Context, bucket *blob.Bucket, key string) (*BlobTarget, error) {
	staging, err := memfs.New().Create(key)
	if err != nil {
		return nil, dvid.IOErr("create", err)
	}
	return &BlobTarget{File: staging, ctx: ctx, bucket: bucket, key: key}, nil
}

// CreateBlob creates a container that is uploaded as an object when finalized
// and closed.
func CreateBlob(ctx context.Context, bucket *blob.Bucket, key string, h format.Header) (*File, error) {
	t, err := NewBlobTarget(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return Create(t, h)
}

func (t *BlobTarget) Name() string {
	return "object " + t.key
}

// Commit marks the staged container complete so Close uploads it.
func (t *BlobTarget) Commit() error {
	t.committed = true
	return nil
}

// Close uploads a committed container and releases the staging buffer.
func (t *BlobTarget) Close() (err error) {
	defer func() {
		err = multierr.Append(err, t.File.Close())
	}()
	if !t.committed {
		dvid.Infof("Discarding incomplete container for object %q\n", t.key)
		return nil
	}
	timedLog := dvid.NewTimeLog()
	if _, err := t.File.Seek(0, io.SeekStart); err != nil {
		return err
	}
	w, err := t.bucket.NewWriter(t.ctx, t.key, nil)
	if err != nil {
		return err
	}
	n, err := io.Copy(w, t.File)
	if err != nil {
		return multierr.Append(err, w.Close())
	}
	if err := w.Close(); err != nil {
		return err
	}
	timedLog.Infof("Uploaded %d bytes to object %q", n, t.key)
	return nil
}
