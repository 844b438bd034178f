package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ironlake-data/catalog/internal/domain"
)

// FileIO is the provider-agnostic object-I/O handle returned for a
// warehouse's storage profile.
type FileIO interface {
	// Exists reports whether location names an object.
	Exists(ctx context.Context, location Location) (bool, error)
	// IsEmpty reports false if location (as a prefix) contains any objects.
	IsEmpty(ctx context.Context, location Location) (bool, error)
	// Write stores data at location, overwriting any existing object.
	Write(ctx context.Context, location Location, data []byte) error
	// Read returns the object's bytes.
	Read(ctx context.Context, location Location) ([]byte, error)
	// Delete removes one object; a missing object is not an error.
	Delete(ctx context.Context, location Location) error
	// DeleteRecursive removes every object under the given prefix, used by
	// the tabular_purge task.
	DeleteRecursive(ctx context.Context, prefix Location) error
}

// NewFileIO builds a provider-specific client for profile. creds is not
// used: the S3 client always loads the ambient/default AWS credentials, and
// the local provider needs none.
func NewFileIO(ctx context.Context, profile StorageProfile, creds map[string]string) (FileIO, error) {
	switch profile.Kind {
	case ProfileLocal:
		return &localFileIO{root: profile.BaseLocation}, nil
	case ProfileS3:
		return newS3FileIO(ctx, profile, creds)
	default:
		return nil, fmt.Errorf("file_io: unsupported provider %q", profile.Kind)
	}
}

// localFileIO backs ProfileLocal (the fake provider used for tests and
// single-node deployments) with the OS filesystem.
type localFileIO struct {
	root string
}

func (l *localFileIO) pathFor(loc Location) (string, error) {
	u, err := url.Parse(string(loc))
	if err != nil {
		return "", err
	}

	return filepath.Join(l.root, u.Path), nil
}

func (l *localFileIO) Exists(_ context.Context, loc Location) (bool, error) {
	p, err := l.pathFor(loc)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}

	return err == nil, err
}

func (l *localFileIO) IsEmpty(_ context.Context, loc Location) (bool, error) {
	p, err := l.pathFor(loc)
	if err != nil {
		return false, err
	}

	entries, err := os.ReadDir(p)
	if os.IsNotExist(err) {
		return true, nil
	}

	if err != nil {
		return false, err
	}

	return len(entries) == 0, nil
}

func (l *localFileIO) Write(_ context.Context, loc Location, data []byte) error {
	p, err := l.pathFor(loc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	return os.WriteFile(p, data, 0o644)
}

func (l *localFileIO) Read(_ context.Context, loc Location) ([]byte, error) {
	p, err := l.pathFor(loc)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, domain.NotFoundError{EntityType: "MetadataFile", Message: fmt.Sprintf("no object at %s", loc)}
	}

	return data, err
}

func (l *localFileIO) Delete(_ context.Context, loc Location) error {
	p, err := l.pathFor(loc)
	if err != nil {
		return err
	}

	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

func (l *localFileIO) DeleteRecursive(_ context.Context, prefix Location) error {
	p, err := l.pathFor(prefix)
	if err != nil {
		return err
	}

	err = os.RemoveAll(p)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

// s3FileIO backs ProfileS3 via the AWS SDK v2 S3 client.
type s3FileIO struct {
	client *s3.Client
	bucket string
}

func newS3FileIO(ctx context.Context, profile StorageProfile, creds map[string]string) (FileIO, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(profile.Region))
	if err != nil {
		return nil, domain.BackendUnavailableError{Backend: "s3", Message: "load aws config", Err: err}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if profile.Endpoint != "" {
			o.BaseEndpoint = &profile.Endpoint
		}

		o.UsePathStyle = profile.PathStyleAccess
	})

	return &s3FileIO{client: client, bucket: profile.Bucket}, nil
}

func s3Key(loc Location) string {
	u, err := url.Parse(string(loc))
	if err != nil {
		return strings.TrimPrefix(string(loc), "/")
	}

	return strings.TrimPrefix(u.Path, "/")
}

func (s *s3FileIO) Exists(ctx context.Context, loc Location) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: strPtr(s3Key(loc))})
	if err != nil {
		return false, nil
	}

	return true, nil
}

func (s *s3FileIO) IsEmpty(ctx context.Context, loc Location) (bool, error) {
	prefix := s3Key(loc)

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
		MaxKeys: int32Ptr(1),
	})
	if err != nil {
		return false, domain.BackendUnavailableError{Backend: "s3", Message: "list objects", Err: err}
	}

	return len(out.Contents) == 0, nil
}

func (s *s3FileIO) Write(ctx context.Context, loc Location, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key: strPtr(s3Key(loc)),
		Body: bytes.NewReader(data),
	})
	if err != nil {
		return domain.BackendUnavailableError{Backend: "s3", Message: "put object", Err: err}
	}

	return nil
}

func (s *s3FileIO) Read(ctx context.Context, loc Location) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: strPtr(s3Key(loc))})
	if err != nil {
		return nil, domain.NotFoundError{EntityType: "MetadataFile", Message: fmt.Sprintf("no object at %s", loc), Err: err}
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *s3FileIO) Delete(ctx context.Context, loc Location) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: strPtr(s3Key(loc))})
	if err != nil {
		return domain.BackendUnavailableError{Backend: "s3", Message: "delete object", Err: err}
	}

	return nil
}

func (s *s3FileIO) DeleteRecursive(ctx context.Context, prefix Location) error {
	p := s3Key(prefix)

	var continuationToken *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: &s.bucket,
			Prefix: &p,
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return domain.BackendUnavailableError{Backend: "s3", Message: "list objects for purge", Err: err}
		}

		for _, obj := range out.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: obj.Key}); err != nil {
				return domain.BackendUnavailableError{Backend: "s3", Message: "delete object during purge", Err: err}
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}

		continuationToken = out.NextContinuationToken
	}

	return nil
}

func strPtr(s string) *string { return &s }
func int32Ptr(n int32) *int32 { return &n }
